package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string  `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Redis             Redis   `yaml:"redis"`
	SQLiteStoragePath string  `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./data/bot.db"`
	OwnerID           string  `yaml:"owner-id" env:"OWNER_ID"`
	Bot               Bot     `yaml:"bot"`
	Session           Session `yaml:"session"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Bot struct {
	// Seed - 0 seeds from the clock.
	Seed          uint64  `yaml:"seed" env:"BOT_SEED" env-default:"0"`
	HeuristicRate float64 `yaml:"heuristic-rate" env:"BOT_HEURISTIC_RATE" env-default:"0.5"`
}

type Session struct {
	// IdleTTL - 0 keeps sessions until they are terminated.
	IdleTTL         time.Duration `yaml:"idle-ttl" env:"SESSION_IDLE_TTL" env-default:"0"`
	JanitorInterval time.Duration `yaml:"janitor-interval" env:"SESSION_JANITOR_INTERVAL" env-default:"1m"`
}

// Load reads path and then applies environment overrides.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
