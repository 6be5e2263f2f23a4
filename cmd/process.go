package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/urbeneye/leadsync/internal/pipeline"
	"github.com/urbeneye/leadsync/pkg/airtable"
	"github.com/urbeneye/leadsync/pkg/graph"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process unread Idealista inquiry emails into Airtable leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateProcess(); err != nil {
			return err
		}

		graphClient := graph.NewClient(graph.Settings{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			UserEmail:    cfg.Graph.UserEmail,
		})
		airtableClient := airtable.NewClient(cfg.Airtable.Token, cfg.Airtable.BaseID)

		stats, err := pipeline.New(cfg, graphClient, airtableClient).Run(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}
