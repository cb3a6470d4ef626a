package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-layout/internal/codec"
	"github.com/danielpatrickdp/adaptive-layout/internal/orchestrator"
)

var feedbackFlags struct {
	decisionID string
	action     int
	reward     float64
	rating     string
	confusion  int
	context    string
	terminal   bool
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Report the outcome of a decision",
	Long: `Reports a reward or rating for a decision. With --decision the action,
state and context are taken from the recorded decision; without it --action
is required.`,
	RunE: runFeedback,
}

func init() {
	f := feedbackCmd.Flags()
	f.StringVarP(&feedbackFlags.decisionID, "decision", "d", "", "decision ID returned by decide")
	f.IntVar(&feedbackFlags.action, "action", 0, "action the feedback is about")
	f.Float64Var(&feedbackFlags.reward, "reward", 0, "explicit reward (wins over --rating)")
	f.StringVar(&feedbackFlags.rating, "rating", "", "like | neutral | dislike")
	f.IntVar(&feedbackFlags.confusion, "confusion", 0, "confusion events observed")
	f.StringVar(&feedbackFlags.context, "context", "", "bandit context (defaults to the decision's)")
	f.BoolVar(&feedbackFlags.terminal, "terminal", false, "end the episode")
}

func feedbackRequest(cmd *cobra.Command) orchestrator.FeedbackRequest {
	req := orchestrator.FeedbackRequest{
		DecisionID:      feedbackFlags.decisionID,
		Rating:          feedbackFlags.rating,
		ConfusionEvents: feedbackFlags.confusion,
		Context:         feedbackFlags.context,
		Terminal:        feedbackFlags.terminal,
	}
	if cmd.Flags().Changed("action") {
		a := feedbackFlags.action
		req.Action = &a
	}
	if cmd.Flags().Changed("reward") {
		r := feedbackFlags.reward
		req.Reward = &r
	}
	return req
}

func runFeedback(cmd *cobra.Command, _ []string) error {
	req := feedbackRequest(cmd)
	if req.DecisionID == "" && req.Action == nil {
		return fmt.Errorf("--decision or --action is required")
	}

	if rootFlags.remote != "" {
		client, err := codec.NewClient(rootFlags.remote)
		if err != nil {
			return err
		}
		defer client.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
		defer cancel()
		resp, err := client.Feedback(ctx, req)
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
	rt.persist = true
	defer rt.Close()
	resp, err := rt.orch.Feedback(req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
