// Package signals turns user feedback into the scalar reward the engine
// learns from.
package signals

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNoReward is returned when feedback carries neither a reward nor a rating.
var ErrNoReward = errors.New("signals: feedback has no reward or rating")

// #region producer

// Producer shapes rewards from feedback.
type Producer struct {
	config ProducerConfig
}

// NewProducer creates a Producer.
func NewProducer(config ProducerConfig) *Producer {
	return &Producer{config: config}
}

// #endregion producer

// #region produce

// Produce computes the shaped reward. An explicit reward is used as-is;
// otherwise the rating is mapped and the confusion penalty added.
func (p *Producer) Produce(input ProduceInput) (Signals, error) {
	if input.Reward != nil {
		return Signals{Reward: *input.Reward, Base: *input.Reward, Source: "explicit"}, nil
	}

	rating, ok := ParseRating(input.Rating)
	if !ok {
		if strings.TrimSpace(input.Rating) == "" {
			return Signals{}, ErrNoReward
		}
		return Signals{}, fmt.Errorf("signals: unknown rating %q", input.Rating)
	}

	base := p.ratingReward(rating)
	penalty := p.penalty(input)
	return Signals{
		Reward:  base + penalty,
		Base:    base,
		Penalty: penalty,
		Source:  "rating",
		Rating:  rating,
	}, nil
}

// #endregion produce

// #region rating

// ParseRating accepts a rating and a few common spellings.
func ParseRating(s string) (Rating, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "like", "up", "thumbs-up", "positive", "good":
		return RatingLike, true
	case "neutral", "meh", "partial", "ok":
		return RatingNeutral, true
	case "dislike", "down", "thumbs-down", "negative", "bad":
		return RatingDislike, true
	}
	return "", false
}

func (p *Producer) ratingReward(r Rating) float64 {
	switch r {
	case RatingLike:
		return p.config.LikeReward
	case RatingDislike:
		return p.config.DislikeReward
	default:
		return p.config.NeutralReward
	}
}

// #endregion rating

// #region penalty

// penalty combines counted confusion events with any precomputed penalty,
// clamped to [-MaxPenalty, 0].
func (p *Producer) penalty(input ProduceInput) float64 {
	total := math.Abs(input.ConfusionPenalty)
	if input.ConfusionEvents > 0 {
		total += float64(input.ConfusionEvents) * p.config.PenaltyPerEvent
	}
	if math.IsNaN(total) {
		return 0
	}
	return -math.Min(total, p.config.MaxPenalty)
}

// #endregion penalty
