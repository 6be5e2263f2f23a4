package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbeneye/leadsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadsync",
	Short: "Idealista lead ingestion and market snapshots",
	Long:  "Reads Idealista inquiry emails from a shared mailbox, extracts leads into Airtable, and builds per-area market snapshots on OneDrive.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
