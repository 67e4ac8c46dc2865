package main

import (
	"os"
	"safe-route-service/internal/config"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "saferoute",
	Short:         "Safety-ranked pedestrian routing service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Bootstrap()
		if err != nil {
			return eris.Wrap(err, "bootstrap")
		}
		if err := c.Validate(cmd.Name()); err != nil {
			return err
		}
		cfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// main is the application composition root.
func main() {
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		_ = zap.L().Sync()
		os.Exit(1)
	}
}
