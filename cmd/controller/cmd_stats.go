package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-layout/internal/codec"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print engine and layout cache counters",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, _ []string) error {
	if rootFlags.remote != "" {
		client, err := codec.NewClient(rootFlags.remote)
		if err != nil {
			return err
		}
		defer client.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
		defer cancel()
		st, err := client.Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), st)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := openRuntime(cfg, false)
	if err != nil {
		return err
	}
	defer rt.Close()
	return printJSON(cmd.OutOrStdout(), rt.orch.Stats())
}
