package lifecycle

// SafetyConfig holds the global-safety override thresholds. Any of these
// firing forces HARVEST regardless of the per-stage table.
type SafetyConfig struct {
	ConsecutiveLossMonths   int     `yaml:"consecutive_loss_months"`    // 3; each must exceed the monthly allowance
	GlobalCumulativeLossJPY int64   `yaml:"global_cumulative_loss_jpy"` // cumulative net below -this forces harvest
	MinReviewRating         float64 `yaml:"min_review_rating"`          // 3.0
	MinReviewCount          int     `yaml:"min_review_count"`           // rating only trusted with this many reviews
}

// ExtensionConfig gates the dynamic invest-window extension.
type ExtensionConfig struct {
	MaxDynamicMonths   int     `yaml:"max_dynamic_months"`   // 3
	LossToleranceRatio float64 `yaml:"loss_tolerance_ratio"` // monthly loss within this x allowance
}

// Config holds the state machine's calibrated thresholds.
type Config struct {
	Safety    SafetyConfig    `yaml:"safety"`
	Extension ExtensionConfig `yaml:"extension"`

	// SEO level break-points on the 0-100 overall score.
	SeoHighScore float64 `yaml:"seo_high_score"` // 70
	SeoLowScore  float64 `yaml:"seo_low_score"`  // 40

	// TACOS bands relative to the sustainable target.
	GrowTacosSlack float64 `yaml:"grow_tacos_slack"` // launch->grow allows sustainable x this, 1.2
}

// DefaultConfig is the offline-calibrated baseline.
func DefaultConfig() Config {
	return Config{
		Safety: SafetyConfig{
			ConsecutiveLossMonths:   3,
			GlobalCumulativeLossJPY: 500000,
			MinReviewRating:         3.0,
			MinReviewCount:          10,
		},
		Extension: ExtensionConfig{
			MaxDynamicMonths:   3,
			LossToleranceRatio: 0.8,
		},
		SeoHighScore:   70,
		SeoLowScore:    40,
		GrowTacosSlack: 1.2,
	}
}
