package bid

// Config holds every calibrated knob of the bid engine. Values are loaded
// from yaml at startup and passed explicitly; DefaultConfig is the offline
// calibration baseline.
type Config struct {
	// Click gates.
	MinClicksForDecision  int64 `yaml:"min_clicks_for_decision"`  // below: data starvation, KEEP
	MinClicksForConfident int64 `yaml:"min_clicks_for_confident"` // above: stats coefficient neutral
	MinClicksForTos       int64 `yaml:"min_clicks_for_tos"`       // above: stats coefficient 1.1

	// Bid bounds.
	MinBidJPY           int64   `yaml:"min_bid_jpy"`
	MaxBidIncreaseRate  float64 `yaml:"max_bid_increase_rate"` // global clip, e.g. +0.50
	MaxBidDecreaseRate  float64 `yaml:"max_bid_decrease_rate"` // global clip, e.g. -0.30

	// Base change rates by action (signed, before coefficients).
	BaseRates BaseRates `yaml:"base_rates"`

	// Score-rank scaling of the base rate.
	TopRankBoundary int     `yaml:"top_rank_boundary"` // score_rank <= this gets TopRankScale
	MidRankBoundary int     `yaml:"mid_rank_boundary"`
	TopRankScale    float64 `yaml:"top_rank_scale"` // 1.2
	MidRankScale    float64 `yaml:"mid_rank_scale"` // 1.0
	TailRankScale   float64 `yaml:"tail_rank_scale"` // 0.8

	Guardrails GuardrailConfig `yaml:"guardrails"`
}

// BaseRates are the per-action base change rates.
type BaseRates struct {
	StrongUp   float64 `yaml:"strong_up"`   // +0.15
	MildUp     float64 `yaml:"mild_up"`     // +0.07
	MildDown   float64 `yaml:"mild_down"`   // -0.07
	StrongDown float64 `yaml:"strong_down"` // -0.15
	Stop       float64 `yaml:"stop"`        // -1.00, clipped by max_bid_decrease_rate
}

// GuardrailConfig holds the default guardrail thresholds before role and
// lifecycle overrides apply.
type GuardrailConfig struct {
	MaxDownStepRatio       float64 `yaml:"max_down_step_ratio"`        // 0.30
	CoreLaunchHardDownStep float64 `yaml:"core_launch_hard_down_step"` // 0.05
	CoreLaunchSoftDownStep float64 `yaml:"core_launch_soft_down_step"` // 0.10
	BrandOwnDownStep       float64 `yaml:"brand_own_down_step"`        // 0.10
	BreachDownStep         float64 `yaml:"breach_down_step"`           // 0.50
	MinClicksForStop       int64   `yaml:"min_clicks_for_stop"`        // 30
	MinClicksForStrongDown int64   `yaml:"min_clicks_for_strong_down"` // 20
	OverspendRatioForStop  float64 `yaml:"overspend_ratio_for_stop"`   // spend >= ratio x target CPA
}

// DefaultConfig returns the calibrated baseline.
func DefaultConfig() Config {
	return Config{
		MinClicksForDecision:  10,
		MinClicksForConfident: 30,
		MinClicksForTos:       100,
		MinBidJPY:             10,
		MaxBidIncreaseRate:    0.50,
		MaxBidDecreaseRate:    -0.30,
		BaseRates: BaseRates{
			StrongUp:   0.15,
			MildUp:     0.07,
			MildDown:   -0.07,
			StrongDown: -0.15,
			Stop:       -1.00,
		},
		TopRankBoundary: 10,
		MidRankBoundary: 50,
		TopRankScale:    1.2,
		MidRankScale:    1.0,
		TailRankScale:   0.8,
		Guardrails: GuardrailConfig{
			MaxDownStepRatio:       0.30,
			CoreLaunchHardDownStep: 0.05,
			CoreLaunchSoftDownStep: 0.10,
			BrandOwnDownStep:       0.10,
			BreachDownStep:         0.50,
			MinClicksForStop:       30,
			MinClicksForStrongDown: 20,
			OverspendRatioForStop:  2.0,
		},
	}
}
