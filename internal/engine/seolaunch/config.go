package seolaunch

// Config holds the SEO launch evaluator's calibrated thresholds.
type Config struct {
	// ACHIEVED gates: rank inside the target band is only trusted with real
	// traffic behind it.
	MinImpressionsForRank int64 `yaml:"min_impressions_for_rank"` // 500
	MinClicksForRank      int64 `yaml:"min_clicks_for_rank"`      // 10

	// GAVE_UP base gates by tier, before volume-bucket scaling.
	BigTierMinDays       int   `yaml:"big_tier_min_days"`       // 45
	BigTierMinClicks     int64 `yaml:"big_tier_min_clicks"`     // 100
	BigTierRankThreshold int   `yaml:"big_tier_rank_threshold"` // 30
	MidTierMinDays       int   `yaml:"mid_tier_min_days"`       // 30
	MidTierMinClicks     int64 `yaml:"mid_tier_min_clicks"`     // 60
	MidTierRankThreshold int   `yaml:"mid_tier_rank_threshold"` // 20

	// Volume-bucket scaling.
	HighVolumeMultiplier float64 `yaml:"high_volume_multiplier"` // 1.3
	LowVolumeMultiplier  float64 `yaml:"low_volume_multiplier"`  // 0.7
	RankThresholdShift   int     `yaml:"rank_threshold_shift"`   // ±5

	// Cost and performance gates on the give-up paths.
	CostMultiplier  float64 `yaml:"cost_multiplier"`    // cost >= this x target CPA
	MaxCvrForGiveUp float64 `yaml:"max_cvr_for_give_up"` // cvr at or under this
	MaxAcosForGiveUp float64 `yaml:"max_acos_for_give_up"` // acos at or over this
}

// DefaultConfig is the offline-calibrated baseline.
func DefaultConfig() Config {
	return Config{
		MinImpressionsForRank: 500,
		MinClicksForRank:      10,
		BigTierMinDays:        45,
		BigTierMinClicks:      100,
		BigTierRankThreshold:  30,
		MidTierMinDays:        30,
		MidTierMinClicks:      60,
		MidTierRankThreshold:  20,
		HighVolumeMultiplier:  1.3,
		LowVolumeMultiplier:   0.7,
		RankThresholdShift:    5,
		CostMultiplier:        3.0,
		MaxCvrForGiveUp:       0.005,
		MaxAcosForGiveUp:      1.0,
	}
}
