// Package budget implements the per-campaign daily-budget rule engine:
// BOOST, KEEP or CURB, evaluated in a fixed order with data gating first and
// explicit clip accounting.
package budget

import (
	"fmt"
	"math"

	"github.com/harunaga/adpilot/internal/domain"
)

// Config holds the budget engine's calibrated thresholds.
type Config struct {
	MinOrdersForDecision int64 `yaml:"min_orders_for_decision"` // 7d orders below this: KEEP

	BoostUsageThreshold  float64 `yaml:"boost_usage_threshold"`   // budget usage %, e.g. 90
	BoostLostIsThreshold float64 `yaml:"boost_lost_is_threshold"` // lost IS %, e.g. 10
	BoostAcosRatio       float64 `yaml:"boost_acos_ratio"`        // acos/target must be under, e.g. 0.8
	BoostPercent         float64 `yaml:"boost_percent"`           // +20 -> x1.2

	CurbLowUsageDays int     `yaml:"curb_low_usage_days"` // consecutive low-usage days, e.g. 3
	CurbAcosRatio    float64 `yaml:"curb_acos_ratio"`     // acos/target must be over, e.g. 1.2
	CurbPercent      float64 `yaml:"curb_percent"`        // -20 -> x0.8

	MinBudgetJPY       int64   `yaml:"min_budget_jpy"`
	GlobalMaxBudgetJPY int64   `yaml:"global_max_budget_jpy"`
	MaxBudgetMultiplier float64 `yaml:"max_budget_multiplier"` // cap at current x this
}

// DefaultConfig is the offline-calibrated baseline.
func DefaultConfig() Config {
	return Config{
		MinOrdersForDecision: 5,
		BoostUsageThreshold:  90,
		BoostLostIsThreshold: 10,
		BoostAcosRatio:       0.8,
		BoostPercent:         20,
		CurbLowUsageDays:     3,
		CurbAcosRatio:        1.2,
		CurbPercent:          20,
		MinBudgetJPY:         100,
		GlobalMaxBudgetJPY:   100000,
		MaxBudgetMultiplier:  2.0,
	}
}

// Engine is the pure budget rule engine.
type Engine struct {
	cfg Config
}

// NewEngine builds a budget engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Run evaluates every campaign, one recommendation per input, in order.
func (e *Engine) Run(campaigns []domain.BudgetMetrics) []domain.BudgetRecommendation {
	out := make([]domain.BudgetRecommendation, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, e.Evaluate(c))
	}
	return out
}

// Evaluate applies the ordered rule set to one campaign.
func (e *Engine) Evaluate(c domain.BudgetMetrics) domain.BudgetRecommendation {
	rec := domain.BudgetRecommendation{
		CampaignID:       c.CampaignID,
		CampaignName:     c.CampaignName,
		Action:           domain.BudgetKeep,
		CurrentBudgetJPY: c.DailyBudgetJPY,
		NewBudgetJPY:     c.DailyBudgetJPY,
	}

	// 1. Data gating.
	if c.Orders7d < e.cfg.MinOrdersForDecision {
		rec.ReasonCode = domain.BudgetReasonInsufficientData
		rec.ReasonDetail = fmt.Sprintf("orders_7d=%d < %d", c.Orders7d, e.cfg.MinOrdersForDecision)
		return rec
	}

	acosRatio := math.Inf(1)
	if c.TargetAcos > 0 {
		acosRatio = c.Acos7d / c.TargetAcos
	}

	// 2. BOOST: budget-starved and efficient.
	lostIS := 0.0
	lostISHit := false
	if c.LostImpressionShareBudget != nil {
		lostIS = *c.LostImpressionShareBudget
		lostISHit = lostIS > e.cfg.BoostLostIsThreshold
	}
	usageHit := c.BudgetUsagePercent > e.cfg.BoostUsageThreshold

	if (usageHit || lostISHit) && acosRatio < e.cfg.BoostAcosRatio {
		raw := int64(math.Round(float64(c.DailyBudgetJPY) * (1 + e.cfg.BoostPercent/100)))
		cap := int64(math.Round(float64(c.DailyBudgetJPY) * e.cfg.MaxBudgetMultiplier))
		if e.cfg.GlobalMaxBudgetJPY < cap {
			cap = e.cfg.GlobalMaxBudgetJPY
		}
		newBudget := raw
		if newBudget > cap {
			newBudget = cap
			rec.Clipped = true
			rec.ClipReason = "max_budget_cap"
		}
		if newBudget <= c.DailyBudgetJPY {
			// Pinned at current: nothing to give.
			rec.Action = domain.BudgetKeep
			rec.NewBudgetJPY = c.DailyBudgetJPY
			rec.ReasonCode = domain.BudgetReasonMaxBudgetReached
			rec.ReasonDetail = fmt.Sprintf("budget %d already at cap %d", c.DailyBudgetJPY, cap)
			return rec
		}
		rec.Action = domain.BudgetBoost
		rec.NewBudgetJPY = newBudget
		if lostISHit {
			rec.ReasonCode = domain.BudgetReasonHighPerfLostIS
			rec.ReasonDetail = fmt.Sprintf("lost_is=%.1f%% > %.1f%%, acos_ratio=%.2f", lostIS, e.cfg.BoostLostIsThreshold, acosRatio)
		} else {
			rec.ReasonCode = domain.BudgetReasonHighPerfUsage
			rec.ReasonDetail = fmt.Sprintf("usage=%.1f%% > %.1f%%, acos_ratio=%.2f", c.BudgetUsagePercent, e.cfg.BoostUsageThreshold, acosRatio)
		}
		return rec
	}

	// 3. CURB: persistently idle and inefficient.
	if c.LowUsageDays >= e.cfg.CurbLowUsageDays && acosRatio > e.cfg.CurbAcosRatio {
		newBudget := int64(math.Round(float64(c.DailyBudgetJPY) * (1 - e.cfg.CurbPercent/100)))
		if newBudget < e.cfg.MinBudgetJPY {
			newBudget = e.cfg.MinBudgetJPY
			rec.Clipped = true
			rec.ClipReason = "min_budget"
		}
		if newBudget >= c.DailyBudgetJPY {
			rec.Action = domain.BudgetKeep
			rec.NewBudgetJPY = c.DailyBudgetJPY
			rec.ReasonCode = domain.BudgetReasonMinBudgetReached
			rec.ReasonDetail = fmt.Sprintf("budget %d already at floor %d", c.DailyBudgetJPY, e.cfg.MinBudgetJPY)
			return rec
		}
		rec.Action = domain.BudgetCurb
		rec.NewBudgetJPY = newBudget
		rec.ReasonCode = domain.BudgetReasonLowUsageHighAcos
		rec.ReasonDetail = fmt.Sprintf("low_usage_days=%d, acos_ratio=%.2f > %.2f", c.LowUsageDays, acosRatio, e.cfg.CurbAcosRatio)
		return rec
	}

	// 4. Default KEEP, reason picked by which side did not fire.
	if usageHit || lostISHit {
		rec.ReasonCode = domain.BudgetReasonModeratePerformance
		rec.ReasonDetail = fmt.Sprintf("budget pressure present but acos_ratio=%.2f not under %.2f", acosRatio, e.cfg.BoostAcosRatio)
	} else {
		rec.ReasonCode = domain.BudgetReasonBudgetAvailable
		rec.ReasonDetail = fmt.Sprintf("usage=%.1f%%, headroom remains", c.BudgetUsagePercent)
	}
	return rec
}
