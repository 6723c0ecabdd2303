package budget

import (
	"fmt"

	"github.com/harunaga/adpilot/internal/domain"
)

// PlacementConfig calibrates the top-of-search placement adjuster.
type PlacementConfig struct {
	Step           float64 `yaml:"step"`             // percent points per move, 10
	MaxPercent     float64 `yaml:"max_percent"`      // 100
	RaiseAcosRatio float64 `yaml:"raise_acos_ratio"` // raise when ACOS under target x this, 0.8
	LowerAcosRatio float64 `yaml:"lower_acos_ratio"` // lower when ACOS over target x this, 1.2
	MinOrders30d   int64   `yaml:"min_orders_30d"`   // data gate, 5
}

// DefaultPlacementConfig is the offline-calibrated baseline.
func DefaultPlacementConfig() PlacementConfig {
	return PlacementConfig{
		Step:           10,
		MaxPercent:     100,
		RaiseAcosRatio: 0.8,
		LowerAcosRatio: 1.2,
		MinOrders30d:   5,
	}
}

// PlacementEngine adjusts the top-of-search placement modifier per campaign.
// Same shape as the budget engine: data gate, then raise, then lower, then
// keep.
type PlacementEngine struct {
	cfg PlacementConfig
}

// NewPlacementEngine builds a placement engine.
func NewPlacementEngine(cfg PlacementConfig) *PlacementEngine {
	return &PlacementEngine{cfg: cfg}
}

// Run evaluates every campaign in order.
func (e *PlacementEngine) Run(campaigns []domain.BudgetMetrics) []domain.PlacementRecommendation {
	out := make([]domain.PlacementRecommendation, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, e.Evaluate(c))
	}
	return out
}

// Evaluate decides RAISE / KEEP / LOWER for one campaign.
func (e *PlacementEngine) Evaluate(c domain.BudgetMetrics) domain.PlacementRecommendation {
	rec := domain.PlacementRecommendation{
		CampaignID:     c.CampaignID,
		Action:         "KEEP",
		CurrentPercent: c.TosPlacementPercent,
		NewPercent:     c.TosPlacementPercent,
	}

	if c.Orders30d < e.cfg.MinOrders30d {
		rec.ReasonDetail = fmt.Sprintf("%d orders in 30d is under the %d gate", c.Orders30d, e.cfg.MinOrders30d)
		return rec
	}
	if c.TargetAcos <= 0 {
		rec.ReasonDetail = "no target ACOS configured"
		return rec
	}

	switch {
	case c.Acos30d > 0 && c.Acos30d < c.TargetAcos*e.cfg.RaiseAcosRatio:
		next := c.TosPlacementPercent + e.cfg.Step
		if next > e.cfg.MaxPercent {
			next = e.cfg.MaxPercent
		}
		if next == c.TosPlacementPercent {
			rec.ReasonDetail = "efficient but placement already at maximum"
			return rec
		}
		rec.Action = "RAISE"
		rec.NewPercent = next
		rec.ReasonDetail = fmt.Sprintf("ACOS %.3f under %.0f%% of target %.3f", c.Acos30d, e.cfg.RaiseAcosRatio*100, c.TargetAcos)
	case c.Acos30d > c.TargetAcos*e.cfg.LowerAcosRatio:
		next := c.TosPlacementPercent - e.cfg.Step
		if next < 0 {
			next = 0
		}
		if next == c.TosPlacementPercent {
			rec.ReasonDetail = "inefficient but placement already at zero"
			return rec
		}
		rec.Action = "LOWER"
		rec.NewPercent = next
		rec.ReasonDetail = fmt.Sprintf("ACOS %.3f over %.1fx target %.3f", c.Acos30d, e.cfg.LowerAcosRatio, c.TargetAcos)
	default:
		rec.ReasonDetail = "ACOS within the neutral band"
	}
	return rec
}
