package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rocketscienceinc/tictactoe-bot/internal/config"
)

var flagConfigPath string

// main - is the entry point of the application. Without a subcommand it serves.
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tictactoe-bot",
	Short: "Tic-tac-toe against a bot or a friend",
	Long: `Serves tic-tac-toe sessions over WebSocket, one game per chat:
single player against an easy, medium or hard bot, or two players.

Examples:
  tictactoe-bot serve --config ./config.yml
  tictactoe-bot selfplay --cross hard --circle easy --games 100`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "./config.yml", "Path to the config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(selfplayCmd)
}

// initialize config.
func initConfig() (*config.Config, error) {
	return config.Load(flagConfigPath)
}

// initialize logger.
func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
