// Package console drives a session from a terminal.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownCommand = errors.New("unknown command")

type CommandKind int

const (
	CommandMove CommandKind = iota
	CommandResize
	CommandNewGame
	CommandQuit
	CommandHelp
)

type Command struct {
	Kind CommandKind
	// Arg is the cell index of a move or the size of a resize.
	Arg int
}

const HelpText = `commands:
  <n> | move <n>     play cell n (0 is top left)
  <row>,<col>        play the cell at row, col
  resize <n>         start a new n x n game
  new                start a new game of the same size
  help               show this text
  quit               leave`

// ParseCommand reads one input line. size is the current board size, used for row,col moves.
func ParseCommand(line string, size int) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{Kind: CommandHelp}, nil
	}

	switch fields[0] {
	case "q", "quit", "exit":
		return Command{Kind: CommandQuit}, nil
	case "h", "help", "?":
		return Command{Kind: CommandHelp}, nil
	case "n", "new", "reset":
		return Command{Kind: CommandNewGame}, nil
	case "r", "resize", "size":
		n, err := argument(fields)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CommandResize, Arg: n}, nil
	case "m", "move":
		n, err := argument(fields)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CommandMove, Arg: n}, nil
	}

	if row, col, ok := strings.Cut(fields[0], ","); ok {
		r, errRow := strconv.Atoi(row)
		c, errCol := strconv.Atoi(col)
		if errRow != nil || errCol != nil || r < 0 || c < 0 || r >= size || c >= size {
			return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
		}
		return Command{Kind: CommandMove, Arg: r*size + c}, nil
	}

	if n, err := strconv.Atoi(fields[0]); err == nil {
		return Command{Kind: CommandMove, Arg: n}, nil
	}

	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
}

func argument(fields []string) (int, error) {
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: %s needs one number", ErrUnknownCommand, fields[0])
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrUnknownCommand, fields[1])
	}

	return n, nil
}
