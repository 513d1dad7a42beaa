package application

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-client/internal/client"
	"github.com/rocketscienceinc/tictactoe-client/internal/config"
	"github.com/rocketscienceinc/tictactoe-client/internal/console"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/fallback"
	"github.com/rocketscienceinc/tictactoe-client/internal/repository"
	"github.com/rocketscienceinc/tictactoe-client/internal/session"
	"github.com/rocketscienceinc/tictactoe-client/internal/storage"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/redis"
)

const snapshotCleanupTimeout = 2 * time.Second

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp plays one interactive session, reading commands from in and drawing to out.
func RunApp(ctx context.Context, logger *slog.Logger, conf *config.Config, in io.Reader, out io.Writer) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	mode, err := session.ParseMode(conf.Server.Mode)
	if err != nil {
		return fmt.Errorf("invalid mode: %w", err)
	}

	local, err := entity.ParseMark(conf.Game.LocalPlayer)
	if err != nil {
		return fmt.Errorf("invalid local player: %w", err)
	}

	clientID := uuid.NewString()
	renderer := console.NewRenderer(out, local)
	observers := []session.Observer{renderer}

	if conf.Redis.Enabled {
		publisher, closeStorage, err := startPublisher(ctx, logger, conf.Redis, clientID)
		if err != nil {
			return err
		}
		defer closeStorage()
		observers = append(observers, publisher)
	}

	gameClient := client.New(logger, client.Options{
		Size:                 conf.Game.Size,
		Mode:                 mode,
		LocalPlayer:          local,
		Fallback:             conf.Server.Fallback,
		SocketURL:            conf.Server.SocketURL,
		HTTPURL:              conf.Server.HTTPURL,
		ConnectTimeout:       conf.Connection.ConnectTimeout,
		ReconnectDelay:       conf.Connection.ReconnectDelay,
		MaxReconnectAttempts: conf.Connection.MaxReconnectAttempts,
		WriteTimeout:         conf.Connection.WriteTimeout,
		ClientID:             clientID,
	}, observers...)

	clientErrCh := make(chan error, 1)
	go func() {
		clientErrCh <- gameClient.Run(ctx)
	}()

	if status, err := gameClient.AIStatus(ctx); err == nil {
		renderer.Println(formatAIStatus(status))
	} else {
		log.Debug("ai status unavailable", "error", err)
	}
	renderer.Println(console.HelpText)

	go func() {
		readCommands(ctx, gameClient, renderer, in)
		cancel()
	}()

	<-ctx.Done()
	if err := <-clientErrCh; err != nil {
		return fmt.Errorf("client stopped: %w", err)
	}

	return nil
}

// RunStatus prints whether the server's AI opponent is available.
func RunStatus(ctx context.Context, logger *slog.Logger, conf *config.Config, out io.Writer) error {
	status, err := fallback.NewClient(logger, conf.Server.HTTPURL, nil).AIStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, formatAIStatus(status))

	return nil
}

func startPublisher(ctx context.Context, logger *slog.Logger, conf config.Redis, clientID string) (*redis.Publisher, func(), error) {
	addr := conf.GetRedisAddr()
	if addr == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	sessionRepo := repository.NewSessionRepository(redisStorage.Connection, conf.SnapshotTTL)

	publisher := redis.NewPublisher(logger, redisStorage.Connection, conf.Channel, clientID, redis.DefaultQueueSize)
	publisher.SetSnapshots(sessionRepo)
	go func() {
		_ = publisher.Run(ctx)
	}()

	closeStorage := func() {
		// ctx is already cancelled here
		deleteCtx, cancel := context.WithTimeout(context.Background(), snapshotCleanupTimeout)
		defer cancel()

		if err := sessionRepo.DeleteByClientID(deleteCtx, clientID); err != nil {
			logger.Warn("could not delete session snapshot", "error", err)
		}

		if err := redisStorage.Close(); err != nil {
			logger.Error("could not close redis storage", "error", err)
		}
	}

	return publisher, closeStorage, nil
}

func readCommands(ctx context.Context, gameClient *client.Client, renderer *console.Renderer, in io.Reader) {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		snapshot, err := gameClient.Snapshot(ctx)
		if err != nil {
			return
		}

		command, err := console.ParseCommand(scanner.Text(), snapshot.Size)
		if err != nil {
			renderer.Println(err)
			continue
		}

		switch command.Kind {
		case console.CommandQuit:
			return
		case console.CommandHelp:
			renderer.Println(console.HelpText)
		case console.CommandNewGame:
			err = gameClient.NewGame(ctx)
		case console.CommandResize:
			err = gameClient.Resize(ctx, command.Arg)
		case console.CommandMove:
			// rejections are already reported through the renderer
			_ = gameClient.SubmitMove(ctx, command.Arg)
		}

		if err != nil {
			renderer.Println(err)
		}
	}
}

func formatAIStatus(status *fallback.AIStatus) string {
	if !status.Available {
		return "ai opponent: offline, the server plays its fallback strategy"
	}

	if status.Model != "" {
		return fmt.Sprintf("ai opponent: online (%s)", status.Model)
	}

	return "ai opponent: online"
}
