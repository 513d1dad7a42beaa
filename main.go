package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	app "github.com/rocketscienceinc/tictactoe-client/internal"
	"github.com/rocketscienceinc/tictactoe-client/internal/config"
)

// main - is the entry point of the application. It parses flags, loads the configuration and runs the client.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	// a missing .env file is not an error
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "tictactoe",
		Usage: "play N x N tic-tac-toe against the game server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yml", Usage: "path to the yaml config file"},
			&cli.IntFlag{Name: "size", Aliases: []string{"n"}, Usage: "board size"},
			&cli.StringFlag{Name: "url", Usage: "websocket endpoint of the game server"},
			&cli.StringFlag{Name: "http-url", Usage: "http endpoint of the game server"},
			&cli.StringFlag{Name: "mode", Usage: "socket, stateless or http"},
			&cli.BoolFlag{Name: "fallback", Usage: "play over http once the socket gives up"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "redis", Usage: "publish session events to redis"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conf, err := initConfig(cmd)
			if err != nil {
				return err
			}

			if err := app.RunApp(ctx, initLogger(conf), conf, os.Stdin, os.Stdout); err != nil {
				return fmt.Errorf("app run failed: %w", err)
			}

			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "show whether the server's ai opponent is available",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					conf, err := initConfig(cmd)
					if err != nil {
						return err
					}

					return app.RunStatus(ctx, initLogger(conf), conf, os.Stdout)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initialize config. Flags win over the file and the environment.
func initConfig(cmd *cli.Command) (*config.Config, error) {
	conf, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("size") {
		conf.Game.Size = int(cmd.Int("size"))
	}
	if cmd.IsSet("url") {
		conf.Server.SocketURL = cmd.String("url")
	}
	if cmd.IsSet("http-url") {
		conf.Server.HTTPURL = cmd.String("http-url")
	}
	if cmd.IsSet("mode") {
		conf.Server.Mode = cmd.String("mode")
	}
	if cmd.IsSet("fallback") {
		conf.Server.Fallback = cmd.Bool("fallback")
	}
	if cmd.IsSet("log-level") {
		conf.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("redis") {
		conf.Redis.Enabled = cmd.Bool("redis")
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// initialize logger. Stdout belongs to the board, so logs go to stderr.
func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
