// Command inspect lists and examines saved engine snapshots, and can roll
// a saved snapshot back to an earlier version.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-layout/internal/bandit"
	"github.com/danielpatrickdp/adaptive-layout/internal/engine"
	"github.com/danielpatrickdp/adaptive-layout/internal/replay"
	"github.com/danielpatrickdp/adaptive-layout/internal/state"
)

// #region main

var flags struct {
	dbPath   string
	boltPath string
	keys     bool
	key      string
	last     int
	version  string
	context  string
	rollback string
	jsonOut  bool
}

var rootCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect versioned engine snapshots in a SQLite store",
	Example: `  inspect --db adaptive_layout.db
  inspect --db adaptive_layout.db --version 3f2a... --context blog
  inspect --db adaptive_layout.db --rollback 3f2a...
  inspect --bolt engine.bolt --keys`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.dbPath, "db", os.Getenv("LAYOUT_DB"), "path to adaptive_layout.db")
	f.StringVar(&flags.boltPath, "bolt", "", "path to a bbolt engine store (only --keys is supported)")
	f.BoolVar(&flags.keys, "keys", false, "list stored keys")
	f.StringVar(&flags.key, "key", engine.DefaultConfig().StateKey, "blob key to inspect")
	f.IntVar(&flags.last, "last", 20, "show N most recent versions")
	f.StringVar(&flags.version, "version", "", "show single version detail")
	f.StringVar(&flags.context, "context", "", "limit the bandit breakdown to one context")
	f.StringVar(&flags.rollback, "rollback", "", "make this version active again, with every blob saved alongside it")
	f.BoolVar(&flags.jsonOut, "json", false, "output as JSON instead of table")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if flags.boltPath != "" {
		if !flags.keys {
			return errors.New("--bolt only supports --keys")
		}
		store, err := state.NewBoltStore(flags.boltPath)
		if err != nil {
			return err
		}
		defer store.Close()
		return runKeysMode(cmd.OutOrStdout(), store, flags.jsonOut)
	}
	if flags.dbPath == "" {
		return errors.New("--db is required")
	}
	store, err := state.NewStore(flags.dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	switch {
	case flags.keys:
		return runKeysMode(out, store, flags.jsonOut)
	case flags.rollback != "":
		keys, err := store.RollbackBatch(flags.rollback)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintf(out, "%s restored to the save of %s\n", k, shortID(flags.rollback))
		}
		return nil
	case flags.version != "":
		return runDetailMode(out, store, flags.version, flags.context, flags.jsonOut)
	default:
		return runListMode(out, store, flags.key, flags.last, flags.jsonOut)
	}
}

// #endregion main

// #region list-mode

func runListMode(w io.Writer, store *state.Store, key string, last int, jsonOut bool) error {
	versions, err := store.Versions(key, last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintf(os.Stderr, "no versions of %s found\n", key)
		return nil
	}
	// store returns newest first; print chronologically
	slices.Reverse(versions)

	if jsonOut {
		return printJSON(w, versions)
	}
	fmt.Fprintf(w, "%-12s  %-12s  %8s  %-12s  %-6s  %s\n", "Version", "Parent", "Bytes", "Checksum", "Active", "Time")
	fmt.Fprintf(w, "%-12s+-%-12s+-%8s+-%-12s+-%-6s+-%s\n",
		"------------", "------------", "--------", "------------", "------", "--------------------")
	for _, v := range versions {
		active := ""
		if v.Active {
			active = "*"
		}
		fmt.Fprintf(w, "%-12s  %-12s  %8d  %-12s  %-6s  %s\n",
			shortID(v.VersionID), shortID(v.ParentID), v.Size, shortID(v.Checksum), active,
			v.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion list-mode

// #region keys-mode

type keyLister interface {
	Keys() ([]string, error)
}

func runKeysMode(w io.Writer, store keyLister, jsonOut bool) error {
	keys, err := store.Keys()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, keys)
	}
	for _, k := range keys {
		fmt.Fprintln(w, k)
	}
	return nil
}

// #endregion keys-mode

// #region detail-mode

// snapshot is the subset of the engine state blob inspect understands.
type snapshot struct {
	Epsilon      float64         `json:"epsilon"`
	StepCount    int             `json:"step_count"`
	EpisodeCount int             `json:"episode_count"`
	TrainSteps   int             `json:"train_steps"`
	Stats        engine.Stats    `json:"stats"`
	Bandits      bandit.Snapshot `json:"bandits"`
}

type contextDetail struct {
	BestArm int       `json:"best_arm"` // -1 = no feedback yet
	Pulls   int       `json:"pulls"`
	Counts  []int     `json:"counts"`
	Values  []float64 `json:"values,omitempty"`
}

type detailOutput struct {
	Version  state.Version            `json:"version"`
	Epsilon  float64                  `json:"epsilon"`
	Steps    int                      `json:"steps"`
	Episodes int                      `json:"episodes"`
	Train    int                      `json:"train_steps"`
	Reward   float64                  `json:"average_reward"`
	Rejected int                      `json:"rejected"`
	Active   string                   `json:"active_strategy"`
	Contexts map[string]contextDetail `json:"contexts,omitempty"`
}

func runDetailMode(w io.Writer, store *state.Store, versionID, ctxFilter string, jsonOut bool) error {
	v, data, err := store.GetVersion(versionID)
	if err != nil {
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("version %s of %s is not an engine snapshot: %w", shortID(versionID), v.Key, err)
	}

	out := detailOutput{
		Version:  v,
		Epsilon:  snap.Epsilon,
		Steps:    snap.StepCount,
		Episodes: snap.EpisodeCount,
		Train:    snap.TrainSteps,
		Reward:   snap.Stats.AverageReward,
		Rejected: snap.Stats.Rejected,
		Active:   snap.Bandits.Active,
		Contexts: make(map[string]contextDetail),
	}
	for name, set := range snap.Bandits.Contexts {
		if ctxFilter != "" && name != ctxFilter {
			continue
		}
		st := set[snap.Bandits.Active]
		out.Contexts[name] = contextDetail{
			BestArm: replay.BestArm(st),
			Pulls:   st.TotalPulls,
			Counts:  st.Counts,
			Values:  st.Values,
		}
	}

	if jsonOut {
		return printJSON(w, out)
	}

	fmt.Fprintf(w, "Version:    %s\n", v.VersionID)
	fmt.Fprintf(w, "Parent:     %s\n", v.ParentID)
	fmt.Fprintf(w, "Created:    %s\n", v.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(w, "Active:     %v\n", v.Active)
	fmt.Fprintf(w, "Epsilon:    %.4f\n", out.Epsilon)
	fmt.Fprintf(w, "Steps:      %d (%d episodes, %d train steps)\n", out.Steps, out.Episodes, out.Train)
	fmt.Fprintf(w, "Avg Reward: %.4f\n", out.Reward)
	fmt.Fprintf(w, "Rejected:   %d\n", out.Rejected)

	fmt.Fprintf(w, "\nBandit contexts (%s):\n", out.Active)
	names := make([]string, 0, len(out.Contexts))
	for name := range out.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		c := out.Contexts[name]
		best := "—"
		if c.BestArm >= 0 {
			best = fmt.Sprintf("%d", c.BestArm)
		}
		fmt.Fprintf(w, "  %-12s best=%-3s pulls=%-5d counts=%v\n", name, best, c.Pulls, c.Counts)
	}
	return nil
}

// #endregion detail-mode

// #region output

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
