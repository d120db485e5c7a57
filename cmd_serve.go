package main

import (
	"fmt"

	"github.com/spf13/cobra"

	app "github.com/rocketscienceinc/tictactoe-bot/internal"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket and HTTP servers",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	conf, err := initConfig()
	if err != nil {
		return err
	}

	if err = app.RunApp(initLogger(conf), conf); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}

	return nil
}
