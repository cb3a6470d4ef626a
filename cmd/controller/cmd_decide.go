package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-layout/internal/codec"
	"github.com/danielpatrickdp/adaptive-layout/internal/orchestrator"
)

const remoteTimeout = 10 * time.Second

var decideFlags struct {
	req    orchestrator.DecisionRequest
	action int
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Make one layout decision and print it as JSON",
	RunE:  runDecide,
}

func init() {
	f := decideCmd.Flags()
	f.StringVar(&decideFlags.req.Domain, "domain", "", "dashboard | ecommerce | blog (synonyms accepted)")
	f.StringVar(&decideFlags.req.Goal, "goal", "", "browse | compare | read | checkout | kpi-focus")
	f.StringVar(&decideFlags.req.Density, "density", "", "compact | medium | cozy")
	f.StringVar(&decideFlags.req.Persona, "persona", "", "new | returning | power")
	f.StringVar(&decideFlags.req.Device, "device", "", "mobile | tablet | desktop")
	f.StringVar(&decideFlags.req.Accent, "accent", "", "cool | warm | neutral")
	f.IntVar(&decideFlags.action, "action", -1, "force a layout action 0-9 (-1 lets the engine choose)")
}

func runDecide(cmd *cobra.Command, _ []string) error {
	req := decideFlags.req
	if cmd.Flags().Changed("action") {
		req.Action = decideFlags.action
	}

	if rootFlags.remote != "" {
		client, err := codec.NewClient(rootFlags.remote)
		if err != nil {
			return err
		}
		defer client.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
		defer cancel()
		resp, err := client.Decide(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
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
	return printJSON(cmd.OutOrStdout(), rt.orch.Decide(req))
}
