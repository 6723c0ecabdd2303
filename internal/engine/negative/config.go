package negative

// Config holds the negative-keyword judger thresholds.
type Config struct {
	Tagger IntentTaggerConfig `yaml:"tagger"`

	// Cluster phase boundaries on accumulated clicks.
	LearningMaxClicks      int64 `yaml:"learning_max_clicks"`       // below this the cluster is LEARNING, 20
	LimitedActionMaxClicks int64 `yaml:"limited_action_max_clicks"` // below this it is LIMITED_ACTION, 60

	// Long-tail guard: thin clusters route to manual review instead of
	// automated verdicts.
	LongTailMaxImpressions int64 `yaml:"long_tail_max_impressions"` // 200
	LongTailMaxClicks      int64 `yaml:"long_tail_max_clicks"`      // 5

	// Rule-of-three statistical stop.
	MinBaselineCvr   float64 `yaml:"min_baseline_cvr"`   // baseline floor, 0.01
	RiskTolerance    float64 `yaml:"risk_tolerance"`     // [0,1], 0.5 neutral
	MinClicksForStop int64   `yaml:"min_clicks_for_stop"` // absolute floor on required clicks, 10

	// DOWN heuristics.
	LowCvrRatio   float64 `yaml:"low_cvr_ratio"`   // cvr under baseline x this is LOW_CVR, 0.5
	HighAcosRatio float64 `yaml:"high_acos_ratio"` // acos over target x this is HIGH_ACOS, 1.5
}

// DefaultConfig is the offline-calibrated baseline.
func DefaultConfig() Config {
	return Config{
		Tagger:                 DefaultIntentTaggerConfig(),
		LearningMaxClicks:      20,
		LimitedActionMaxClicks: 60,
		LongTailMaxImpressions: 200,
		LongTailMaxClicks:      5,
		MinBaselineCvr:         0.01,
		RiskTolerance:          0.5,
		MinClicksForStop:       10,
		LowCvrRatio:            0.5,
		HighAcosRatio:          1.5,
	}
}

// PromoterConfig holds the auto-exact promotion thresholds.
type PromoterConfig struct {
	MinConversions      int64   `yaml:"min_conversions"`       // proven-converter bar, 3
	MinEfficientConv    int64   `yaml:"min_efficient_conv"`    // efficient-spend bar, 2
	EfficientAcosRatio  float64 `yaml:"efficient_acos_ratio"`  // acos under target x this, 0.8
	SuggestedBidMarkup  float64 `yaml:"suggested_bid_markup"`  // on observed CPC, 0.10
	MinSuggestedBidJPY  int64   `yaml:"min_suggested_bid_jpy"` // 10
}

// DefaultPromoterConfig is the stock promotion calibration.
func DefaultPromoterConfig() PromoterConfig {
	return PromoterConfig{
		MinConversions:     3,
		MinEfficientConv:   2,
		EfficientAcosRatio: 0.8,
		SuggestedBidMarkup: 0.10,
		MinSuggestedBidJPY: 10,
	}
}

// DefaultDiscoveryConfig relaxes the conversion bars for the report-only
// keyword-discovery pass. A single conversion is enough to surface a
// candidate there because nothing is persisted or applied.
func DefaultDiscoveryConfig() PromoterConfig {
	cfg := DefaultPromoterConfig()
	cfg.MinConversions = 1
	cfg.MinEfficientConv = 1
	return cfg
}
