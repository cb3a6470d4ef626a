// Command replay re-runs recorded feedback through a fresh engine and
// compares the outcome with what was expected.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
	"github.com/danielpatrickdp/adaptive-layout/internal/replay"
	"github.com/danielpatrickdp/adaptive-layout/internal/state"
)

// errDiverged makes the process exit 1 without printing an error.
var errDiverged = errors.New("replay diverged")

// #region main

var flags struct {
	dbPath      string
	fixturePath string
	limit       int
}

var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a fixture or a provenance database and report divergence",
	Long: `replay --fixture path/to/session.yaml
replay --db path/to/adaptive_layout.db

Fixture mode checks per-turn outcomes and expected best arms. DB mode replays
committed feedback and expects every turn to commit again. Exits 1 when
anything diverges.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.dbPath, "db", "", "path to adaptive_layout.db (DB mode)")
	f.StringVar(&flags.fixturePath, "fixture", "", "path to fixture JSON or YAML (fixture mode)")
	f.IntVar(&flags.limit, "limit", 0, "replay only the first N feedback rows in DB mode (0 = all)")
	rootCmd.MarkFlagsOneRequired("db", "fixture")
	rootCmd.MarkFlagsMutuallyExclusive("db", "fixture")
}

func main() {
	err := rootCmd.Execute()
	switch {
	case errors.Is(err, errDiverged):
		os.Exit(1)
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	f, err := loadFixture()
	if err != nil {
		return err
	}
	results, eng, err := replay.Replay(f)
	if err != nil {
		return err
	}
	summary := replay.Summarize(results, eng)
	if printComparison(cmd.OutOrStdout(), f, results, summary) > 0 {
		return errDiverged
	}
	return nil
}

func loadFixture() (*replay.Fixture, error) {
	if flags.fixturePath != "" {
		return replay.LoadFixture(flags.fixturePath)
	}
	store, err := state.NewStore(flags.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer store.Close()
	prov, err := logging.NewProvenance(store.DB())
	if err != nil {
		return nil, err
	}
	records, err := prov.ListFeedback(flags.limit)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no committed feedback in %s", flags.dbPath)
	}
	return replay.FixtureFromFeedback("replay of "+flags.dbPath, records)
}

// #endregion main

// #region output

// printComparison writes a per-turn table plus the summary and returns the
// number of mismatches.
func printComparison(w io.Writer, f *replay.Fixture, results []replay.ReplayResult, s replay.ReplaySummary) int {
	expected := make(map[string]string, len(f.ExpectedResults))
	for _, e := range f.ExpectedResults {
		expected[e.TurnID] = e.Action
	}

	fmt.Fprintf(w, "%-14s| %-10s| %-4s| %-8s| %-13s| %-13s| %s\n",
		"Turn", "Context", "Arm", "Reward", "Expected", "Replayed", "Match")
	fmt.Fprintf(w, "%-14s+%-11s+%-5s+%-9s+%-14s+%-14s+%s\n",
		"--------------", "-----------", "-----", "---------", "--------------", "--------------", "------")
	for _, r := range results {
		exp, ok := expected[r.TurnID]
		match := "—"
		if ok {
			match = "OK"
			if exp != r.Action {
				match = "DIFF"
			}
		}
		fmt.Fprintf(w, "%-14s| %-10s| %-4d| %8.4f| %-13s| %-13s| %s\n",
			shortID(r.TurnID), r.Context, r.Arm, r.Reward, exp, r.Action, match)
	}

	mismatches := replay.Check(f, results, s)
	fmt.Fprintf(w, "\nSummary: %d turns, %d commit, %d gate_reject, %d signal_error\n",
		s.TotalTurns, s.Commits, s.GateRejects, s.SignalErrors)
	fmt.Fprintf(w, "         mean reward %.4f, epsilon %.4f, %d train steps, %d rollbacks\n",
		s.MeanReward, s.FinalEpsilon, s.TrainSteps, s.Rollbacks)

	contexts := make([]string, 0, len(s.BestArms))
	for ctx := range s.BestArms {
		contexts = append(contexts, ctx)
	}
	slices.Sort(contexts)
	for _, ctx := range contexts {
		fmt.Fprintf(w, "         best arm %-10s %d\n", ctx, s.BestArms[ctx])
	}

	for _, m := range mismatches {
		fmt.Fprintf(w, "DIVERGED %s\n", m)
	}
	return len(mismatches)
}

func shortID(id string) string {
	if len(id) > 14 {
		return id[:14]
	}
	return id
}

// #endregion output
