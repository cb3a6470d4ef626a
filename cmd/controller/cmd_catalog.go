package main

import (
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
)

var catalogFlags struct {
	capability string
	context    string
	goal       string
	slot       string
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the component catalog",
	Long: "catalog lists the registered component tags. --capability, --context and\n" +
		"--goal filter by index; --slot picks the best component for a slot name,\n" +
		"ranked against --context and --goal.",
	Example: `  controller catalog --capability display-product
  controller catalog --slot cart-summary --context ecommerce --goal checkout`,
	RunE: runCatalog,
}

func init() {
	f := catalogCmd.Flags()
	f.StringVar(&catalogFlags.capability, "capability", "", "list components declaring this capability")
	f.StringVar(&catalogFlags.context, "context", "", "list components declaring this context")
	f.StringVar(&catalogFlags.goal, "goal", "", "list components declaring this goal")
	f.StringVar(&catalogFlags.slot, "slot", "", "pick the best component for this slot")
}

type catalogResult struct {
	Components   int      `json:"components"`
	Tags         []string `json:"tags,omitempty"`
	ByCapability []string `json:"by_capability,omitempty"`
	ByContext    []string `json:"by_context,omitempty"`
	ByGoal       []string `json:"by_goal,omitempty"`
	Slot         string   `json:"slot,omitempty"`
	Match        string   `json:"match,omitempty"`
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	f := catalogFlags
	out := catalogResult{Components: reg.Len()}
	if f.slot != "" {
		in, _ := intent.Normalize(intent.Raw{Domain: f.context, Goal: f.goal})
		out.Slot = f.slot
		out.Match = reg.FindBestMatch(f.slot, in)
		return printJSON(cmd.OutOrStdout(), out)
	}
	if f.capability != "" {
		out.ByCapability = reg.ByCapability(f.capability)
	}
	if f.context != "" {
		out.ByContext = reg.ByContext(f.context)
	}
	if f.goal != "" {
		out.ByGoal = reg.ByGoal(f.goal)
	}
	if f.capability == "" && f.context == "" && f.goal == "" {
		for _, a := range reg.All() {
			out.Tags = append(out.Tags, a.Tag)
		}
	}
	return printJSON(cmd.OutOrStdout(), out)
}
