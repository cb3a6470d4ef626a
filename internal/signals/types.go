package signals

// #region rating

// Rating is the user's explicit verdict on a layout.
type Rating string

const (
	RatingLike    Rating = "like"
	RatingNeutral Rating = "neutral"
	RatingDislike Rating = "dislike"
)

// #endregion rating

// #region config

// ProducerConfig holds the reward mapping and penalty bounds.
type ProducerConfig struct {
	LikeReward      float64 `json:"like_reward" yaml:"like_reward"`
	NeutralReward   float64 `json:"neutral_reward" yaml:"neutral_reward"`
	DislikeReward   float64 `json:"dislike_reward" yaml:"dislike_reward"`
	PenaltyPerEvent float64 `json:"penalty_per_event" yaml:"penalty_per_event"` // subtracted per confusion event
	MaxPenalty      float64 `json:"max_penalty" yaml:"max_penalty"`             // total penalty is clamped to [-MaxPenalty, 0]
}

// DefaultProducerConfig maps like/neutral/dislike to 1/0.5/0 and caps the
// confusion penalty at 0.5.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		LikeReward:      1,
		NeutralReward:   0.5,
		DislikeReward:   0,
		PenaltyPerEvent: 0.1,
		MaxPenalty:      0.5,
	}
}

// #endregion config

// #region input

// ProduceInput is the raw feedback a caller reports for one decision.
type ProduceInput struct {
	Reward           *float64 // explicit scalar, wins over Rating
	Rating           string
	ConfusionEvents  int     // detected confusion signals (rage clicks, backtracking)
	ConfusionPenalty float64 // precomputed penalty; sign is ignored
}

// #endregion input

// #region signals

// Signals is the shaped reward and how it was derived.
type Signals struct {
	Reward  float64 `json:"reward"`
	Base    float64 `json:"base"`
	Penalty float64 `json:"penalty"`
	Source  string  `json:"source"` // "explicit" | "rating"
	Rating  Rating  `json:"rating,omitempty"`
}

// #endregion signals
