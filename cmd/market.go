package main

import (
	"github.com/spf13/cobra"

	"github.com/urbeneye/leadsync/internal/market"
	"github.com/urbeneye/leadsync/pkg/graph"
	"github.com/urbeneye/leadsync/pkg/idealista"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Build per-area market snapshots and upload them to OneDrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateMarket(); err != nil {
			return err
		}

		areas, err := market.LoadAreas(cfg.Market.AreasFile)
		if err != nil {
			return err
		}

		graphClient := graph.NewClient(graph.Settings{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			UserEmail:    cfg.Graph.UserEmail,
		})
		idealistaClient := idealista.NewClient(cfg.Idealista.APIKey, cfg.Idealista.Secret,
			idealista.WithBaseURL(cfg.Idealista.BaseURL))

		return market.NewSnapshot(cfg, graphClient, idealistaClient).Run(ctx, areas)
	},
}

func init() {
	rootCmd.AddCommand(marketCmd)
}
