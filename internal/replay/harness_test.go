package replay

import (
	"testing"

	"github.com/danielpatrickdp/adaptive-layout/internal/bandit"
)

func TestBestArm(t *testing.T) {
	cases := []struct {
		name string
		st   bandit.Stats
		want int
	}{
		{"no pulls", bandit.Stats{Counts: []int{0, 0, 0}, Values: []float64{0, 0, 0}}, -1},
		{"running means", bandit.Stats{Counts: []int{2, 0, 5}, Values: []float64{0.4, 0.9, 0.6}}, 2},
		{"ties keep lowest arm", bandit.Stats{Counts: []int{1, 1}, Values: []float64{0.5, 0.5}}, 0},
		{"posterior means", bandit.Stats{Counts: []int{3, 3}, Alpha: []float64{2, 4}, Beta: []float64{3, 1}}, 1},
		{"negative estimates", bandit.Stats{Counts: []int{1, 1}, Values: []float64{-0.5, -0.2}}, 1},
	}
	for _, tc := range cases {
		if got := BestArm(tc.st); got != tc.want {
			t.Errorf("%s: BestArm = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestCheck_ReportsMismatches(t *testing.T) {
	f := &Fixture{
		ExpectedResults: []FixtureExpectedResult{
			{TurnID: "a", Action: ActionCommit},
			{TurnID: "b", Action: ActionCommit},
			{TurnID: "c", Action: ActionGateReject},
		},
		ExpectedBestArms: map[string]int{"blog": 2, "ecommerce": 0},
	}
	results := []ReplayResult{
		{TurnID: "a", Action: ActionCommit},
		{TurnID: "b", Action: ActionGateReject},
	}
	summary := ReplaySummary{BestArms: map[string]int{"blog": 2}}

	mm := Check(f, results, summary)
	if len(mm) != 3 {
		t.Fatalf("mismatches = %v", mm)
	}
	if mm[0].TurnID != "b" || mm[0].Got != ActionGateReject {
		t.Errorf("first mismatch = %v", mm[0])
	}
	if mm[1].Got != "missing" {
		t.Errorf("second mismatch = %v", mm[1])
	}
	if mm[2].String() != "best-arm/ecommerce: want arm 0, got arm -1" {
		t.Errorf("best arm mismatch = %q", mm[2].String())
	}
}
