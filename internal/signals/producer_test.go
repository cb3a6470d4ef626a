package signals

import (
	"errors"
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

// #region rating-tests

func TestProduce_RatingMapping(t *testing.T) {
	p := NewProducer(DefaultProducerConfig())
	cases := map[string]float64{
		"like":      1,
		"Thumbs-Up": 1,
		"neutral":   0.5,
		"dislike":   0,
		" down ":    0,
	}
	for in, want := range cases {
		got, err := p.Produce(ProduceInput{Rating: in})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if got.Reward != want {
			t.Errorf("%q: expected reward %v, got %v", in, want, got.Reward)
		}
		if got.Source != "rating" {
			t.Errorf("%q: expected source rating, got %s", in, got.Source)
		}
	}
}

func TestProduce_ExplicitRewardWins(t *testing.T) {
	p := NewProducer(DefaultProducerConfig())
	got, err := p.Produce(ProduceInput{Reward: ptr(0.25), Rating: "like", ConfusionEvents: 3})
	if err != nil {
		t.Fatal(err)
	}
	if got.Reward != 0.25 || got.Source != "explicit" || got.Penalty != 0 {
		t.Fatalf("explicit reward should pass through untouched, got %+v", got)
	}
}

func TestProduce_MissingAndUnknown(t *testing.T) {
	p := NewProducer(DefaultProducerConfig())
	if _, err := p.Produce(ProduceInput{}); !errors.Is(err, ErrNoReward) {
		t.Fatalf("expected ErrNoReward, got %v", err)
	}
	if _, err := p.Produce(ProduceInput{Rating: "love-it"}); err == nil {
		t.Fatal("expected error for unknown rating")
	}
}

// #endregion rating-tests

// #region penalty-tests

func TestProduce_ConfusionPenalty(t *testing.T) {
	p := NewProducer(DefaultProducerConfig())

	got, _ := p.Produce(ProduceInput{Rating: "like", ConfusionEvents: 2})
	if math.Abs(got.Penalty+0.2) > 1e-9 {
		t.Errorf("expected penalty -0.2, got %v", got.Penalty)
	}
	if math.Abs(got.Reward-0.8) > 1e-9 {
		t.Errorf("expected reward 0.8, got %v", got.Reward)
	}

	got, _ = p.Produce(ProduceInput{Rating: "neutral", ConfusionPenalty: 0.3})
	if math.Abs(got.Penalty+0.3) > 1e-9 {
		t.Errorf("precomputed penalty sign should be ignored, got %v", got.Penalty)
	}
}

func TestProduce_PenaltyIsClamped(t *testing.T) {
	p := NewProducer(DefaultProducerConfig())
	got, _ := p.Produce(ProduceInput{Rating: "dislike", ConfusionEvents: 40, ConfusionPenalty: -3})
	if got.Penalty != -0.5 {
		t.Errorf("expected penalty clamped to -0.5, got %v", got.Penalty)
	}
	if got.Reward != -0.5 {
		t.Errorf("expected reward -0.5, got %v", got.Reward)
	}

	got, _ = p.Produce(ProduceInput{Rating: "like", ConfusionEvents: -4})
	if got.Penalty != 0 {
		t.Errorf("negative event counts should not add reward, got penalty %v", got.Penalty)
	}
}

// #endregion penalty-tests
