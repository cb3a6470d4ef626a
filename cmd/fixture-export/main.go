// Command fixture-export turns committed feedback from a provenance
// database into a replay fixture.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
	"github.com/danielpatrickdp/adaptive-layout/internal/replay"
	"github.com/danielpatrickdp/adaptive-layout/internal/state"
)

// #region main

var flags struct {
	dbPath      string
	outPath     string
	limit       int
	description string
}

var rootCmd = &cobra.Command{
	Use:          "fixture-export",
	Short:        "Export committed feedback as a replay fixture",
	Example:      "  fixture-export --db adaptive_layout.db --out testdata/session.yaml",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.dbPath, "db", "", "path to adaptive_layout.db (required)")
	f.StringVar(&flags.outPath, "out", "", "output fixture path; .yaml/.yml writes YAML, anything else JSON (required)")
	f.IntVar(&flags.limit, "limit", 0, "export only the first N feedback rows (0 = all)")
	f.StringVar(&flags.description, "description", "", "fixture description")
	_ = rootCmd.MarkFlagRequired("db")
	_ = rootCmd.MarkFlagRequired("out")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	store, err := state.NewStore(flags.dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	prov, err := logging.NewProvenance(store.DB())
	if err != nil {
		return err
	}
	records, err := prov.ListFeedback(flags.limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("no committed feedback rows found")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Found %d feedback rows\n", len(records))

	desc := flags.description
	if desc == "" {
		desc = fmt.Sprintf("exported from %s (%d turns)", filepath.Base(flags.dbPath), len(records))
	}
	fixture, err := replay.FixtureFromFeedback(desc, records)
	if err != nil {
		return err
	}

	// the exported state is the ground truth; replay must commit each turn
	// and end on the same best arms
	results, eng, err := replay.Replay(fixture)
	if err != nil {
		return fmt.Errorf("verify fixture: %w", err)
	}
	fixture.ExpectedBestArms = make(map[string]int)
	for ctx, arm := range replay.Summarize(results, eng).BestArms {
		if arm >= 0 {
			fixture.ExpectedBestArms[ctx] = arm
		}
	}
	return writeFixture(fixture, flags.outPath)
}

// #endregion main

// #region output

func writeFixture(f *replay.Fixture, path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(f)
	default:
		data, err = json.MarshalIndent(f, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	fmt.Printf("Wrote fixture to %s\n", path)
	return nil
}

// #endregion output
