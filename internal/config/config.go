package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel   string     `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	Server     Server     `yaml:"server"`
	Game       Game       `yaml:"game"`
	Connection Connection `yaml:"connection"`
	Redis      Redis      `yaml:"redis"`
}

type Server struct {
	SocketURL string `yaml:"socket-url" env:"SOCKET_URL" env-default:"ws://localhost:8000/game"`
	HTTPURL   string `yaml:"http-url" env:"HTTP_URL" env-default:"http://localhost:8000"`
	// Mode is one of socket, stateless or http.
	Mode     string `yaml:"mode" env:"MODE" env-default:"socket"`
	Fallback bool   `yaml:"fallback" env:"FALLBACK" env-default:"false"`
}

type Game struct {
	Size        int    `yaml:"size" env:"BOARD_SIZE" env-default:"3"`
	LocalPlayer string `yaml:"local-player" env:"LOCAL_PLAYER" env-default:"X"`
}

type Connection struct {
	ConnectTimeout       time.Duration `yaml:"connect-timeout" env:"CONNECT_TIMEOUT" env-default:"5s"`
	ReconnectDelay       time.Duration `yaml:"reconnect-delay" env:"RECONNECT_DELAY" env-default:"2s"`
	MaxReconnectAttempts int           `yaml:"max-reconnect-attempts" env:"MAX_RECONNECT_ATTEMPTS" env-default:"3"`
	WriteTimeout         time.Duration `yaml:"write-timeout" env:"WRITE_TIMEOUT" env-default:"10s"`
}

type Redis struct {
	Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host    string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Channel string `yaml:"channel" env:"REDIS_CHANNEL" env-default:"tictactoe:events"`

	// SnapshotTTL bounds how long the latest session outlives a crashed client.
	SnapshotTTL time.Duration `yaml:"snapshot-ttl" env:"REDIS_SNAPSHOT_TTL" env-default:"24h"`
}

// Load reads path when it exists and the environment otherwise. Environment variables override the file.
func Load(path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, config); err != nil {
				return nil, fmt.Errorf("unable to load config file: %w", err)
			}
			return config, nil
		}
	}

	if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("unable to load config from env: %w", err)
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log-level %q", ErrInvalidConfig, that.LogLevel)
	}

	switch that.Server.Mode {
	case "socket", "stateless", "http":
	default:
		return fmt.Errorf("%w: server.mode %q", ErrInvalidConfig, that.Server.Mode)
	}

	if that.Server.Mode != "http" {
		if err := checkURL(that.Server.SocketURL, "ws", "wss"); err != nil {
			return fmt.Errorf("%w: server.socket-url: %w", ErrInvalidConfig, err)
		}
	}

	if that.Server.Mode == "http" || that.Server.Fallback {
		if err := checkURL(that.Server.HTTPURL, "http", "https"); err != nil {
			return fmt.Errorf("%w: server.http-url: %w", ErrInvalidConfig, err)
		}
	}

	if that.Game.Size < 3 {
		return fmt.Errorf("%w: game.size must be at least 3, got %d", ErrInvalidConfig, that.Game.Size)
	}

	if that.Game.LocalPlayer != "X" && that.Game.LocalPlayer != "O" {
		return fmt.Errorf("%w: game.local-player %q", ErrInvalidConfig, that.Game.LocalPlayer)
	}

	if that.Connection.ConnectTimeout <= 0 || that.Connection.ReconnectDelay <= 0 || that.Connection.WriteTimeout <= 0 {
		return fmt.Errorf("%w: connection timeouts must be positive", ErrInvalidConfig)
	}

	if that.Connection.MaxReconnectAttempts < 0 {
		return fmt.Errorf("%w: connection.max-reconnect-attempts must not be negative", ErrInvalidConfig)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

func checkURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}

	for _, scheme := range schemes {
		if parsed.Scheme == scheme && parsed.Host != "" {
			return nil
		}
	}

	return fmt.Errorf("%q needs scheme %v and a host", raw, schemes)
}
