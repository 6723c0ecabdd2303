// Package lifecycle implements the four-stage product state machine:
// LAUNCH_HARD, LAUNCH_SOFT, GROW, HARVEST. Global safety overrides come
// first, then the dynamic invest-window extension, then the per-stage
// transition table; a launch-exit decision from the SEO evaluator overrides
// the table for launch stages.
package lifecycle

import (
	"fmt"

	"github.com/harunaga/adpilot/internal/domain"
)

// Decision is the state machine's output for one product.
type Decision struct {
	ASIN             string                `json:"asin"`
	CurrentStage     domain.LifecycleStage `json:"current_stage"`
	RecommendedStage domain.LifecycleStage `json:"recommended_stage"`
	ShouldTransition bool                  `json:"should_transition"`
	Reason           string                `json:"reason"`
	ForceHarvest     bool                  `json:"force_harvest"`
	IsEmergencyExit  bool                  `json:"is_emergency_exit"`
	ExtensionGranted bool                  `json:"extension_granted"`
	Warnings         []string              `json:"warnings,omitempty"`
}

// Input is one product's snapshot. Profits are chronological, latest last;
// the latest month drives the monthly checks. ExitDecision is nil when the
// SEO launch evaluator did not run or the product is not in a launch stage.
type Input struct {
	Strategy     domain.ProductStrategy
	Profits      []domain.MonthlyProfit
	Seo          domain.SeoScore
	ExitDecision *domain.LaunchExitDecision
}

type seoLevel int

const (
	seoLow seoLevel = iota
	seoMid
	seoHigh
)

// Machine is the pure C8 engine.
type Machine struct {
	cfg Config
}

// NewMachine builds a lifecycle state machine.
func NewMachine(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// Evaluate runs the full ordering: safety, extension, stage table, exit
// override.
func (m *Machine) Evaluate(in Input) Decision {
	d := Decision{
		ASIN:             in.Strategy.ASIN,
		CurrentStage:     in.Strategy.Stage,
		RecommendedStage: in.Strategy.Stage,
	}

	latest, hasProfit := latestProfit(in.Profits)

	// 1. Global safety overrides everything.
	if reason, fired := m.checkSafety(in, latest, hasProfit); fired {
		d.RecommendedStage = domain.StageHarvest
		d.ShouldTransition = in.Strategy.Stage != domain.StageHarvest
		d.ForceHarvest = true
		d.Reason = reason
		return d
	}

	// 2. Per-stage transition table.
	next, reason := m.stageRule(in, latest, hasProfit)
	d.RecommendedStage = next
	d.ShouldTransition = next != in.Strategy.Stage
	d.Reason = reason

	// 3. Invest-window extension, launch stages only. Graduating out of
	// launch wins over extending the window.
	if in.Strategy.Stage.IsLaunch() && next.IsLaunch() && hasProfit {
		granted, why := m.checkExtension(in, latest)
		d.ExtensionGranted = granted
		if why != "" {
			d.Warnings = append(d.Warnings, why)
		}
	}

	// 4. Launch-exit decision overrides the table for launch stages.
	if in.Strategy.Stage.IsLaunch() && in.ExitDecision != nil && in.ExitDecision.ShouldExit {
		d.RecommendedStage = in.ExitDecision.TargetStage
		d.ShouldTransition = in.ExitDecision.TargetStage != in.Strategy.Stage
		d.Reason = fmt.Sprintf("launch exit (%s): %s", in.ExitDecision.ReasonCode, in.ExitDecision.ReasonDetail)
		d.IsEmergencyExit = in.ExitDecision.IsEmergency
	}

	return d
}

func latestProfit(profits []domain.MonthlyProfit) (domain.MonthlyProfit, bool) {
	if len(profits) == 0 {
		return domain.MonthlyProfit{}, false
	}
	return profits[len(profits)-1], true
}

// checkSafety evaluates the three global predicates.
func (m *Machine) checkSafety(in Input, latest domain.MonthlyProfit, hasProfit bool) (string, bool) {
	s := m.cfg.Safety
	allowance := float64(in.Strategy.InvestMaxLossJPYMonth)

	if s.ConsecutiveLossMonths > 0 && len(in.Profits) >= s.ConsecutiveLossMonths && allowance > 0 {
		run := in.Profits[len(in.Profits)-s.ConsecutiveLossMonths:]
		all := true
		for _, p := range run {
			if p.NetProfitJPY >= -allowance {
				all = false
				break
			}
		}
		if all {
			return fmt.Sprintf("%d consecutive months each losing beyond the %d JPY allowance", s.ConsecutiveLossMonths, in.Strategy.InvestMaxLossJPYMonth), true
		}
	}

	if hasProfit && latest.NetProfitCumJPY < -float64(s.GlobalCumulativeLossJPY) {
		return fmt.Sprintf("cumulative net %.0f below the global -%d limit", latest.NetProfitCumJPY, s.GlobalCumulativeLossJPY), true
	}

	if in.Strategy.ReviewRating > 0 && in.Strategy.ReviewRating < s.MinReviewRating && in.Strategy.ReviewCount >= s.MinReviewCount {
		return fmt.Sprintf("review rating %.1f below %.1f with %d reviews", in.Strategy.ReviewRating, s.MinReviewRating, in.Strategy.ReviewCount), true
	}

	return "", false
}

// checkExtension grants one extra invest month when all three conditions
// hold near window expiry, capped at the dynamic maximum.
func (m *Machine) checkExtension(in Input, latest domain.MonthlyProfit) (bool, string) {
	if latest.MonthsSinceLaunch < in.Strategy.EffectiveWindowMonths() {
		return false, "" // window not yet at its edge
	}
	if in.Strategy.InvestWindowExtension >= m.cfg.Extension.MaxDynamicMonths {
		return false, "invest window at dynamic extension cap"
	}

	trendOK := in.Seo.Trend == domain.TrendUp || in.Seo.Trend == domain.TrendFlat
	allowance := float64(in.Strategy.InvestMaxLossJPYMonth)
	lossOK := allowance <= 0 || latest.NetProfitJPY >= -m.cfg.Extension.LossToleranceRatio*allowance
	tacosOK := latest.Tacos <= in.Strategy.InvestTacosCap

	if trendOK && lossOK && tacosOK {
		return true, ""
	}
	return false, fmt.Sprintf("extension denied: trend_ok=%t loss_ok=%t tacos_ok=%t", trendOK, lossOK, tacosOK)
}

func (m *Machine) seoLevelOf(s domain.SeoScore) seoLevel {
	switch {
	case s.Overall >= m.cfg.SeoHighScore || s.Zone == domain.ZoneTop:
		return seoHigh
	case s.Overall < m.cfg.SeoLowScore || s.Zone == domain.ZoneOutOfRange:
		return seoLow
	default:
		return seoMid
	}
}

// stageRule is the per-stage transition table.
func (m *Machine) stageRule(in Input, latest domain.MonthlyProfit, hasProfit bool) (domain.LifecycleStage, string) {
	st := in.Strategy
	level := m.seoLevelOf(in.Seo)
	allowance := float64(st.InvestMaxLossJPYMonth)
	window := st.EffectiveWindowMonths()

	switch st.Stage {
	case domain.StageLaunchHard:
		if !hasProfit {
			return st.Stage, "no profit data yet"
		}
		if latest.MonthsSinceLaunch > window && level == seoHigh &&
			latest.Tacos <= st.SustainableTacos*m.cfg.GrowTacosSlack && latest.NetProfitJPY >= 0 {
			return domain.StageGrow, "window served, SEO high, TACOS in band, breakeven"
		}
		if latest.Tacos > st.InvestTacosCap {
			return domain.StageLaunchSoft, fmt.Sprintf("monthly TACOS %.3f over invest cap %.3f", latest.Tacos, st.InvestTacosCap)
		}
		if allowance > 0 && latest.NetProfitJPY < -allowance {
			return domain.StageLaunchSoft, fmt.Sprintf("monthly loss %.0f beyond allowance %d", latest.NetProfitJPY, st.InvestMaxLossJPYMonth)
		}
		if in.Seo.Trend == domain.TrendDown {
			return domain.StageLaunchSoft, "SEO stalled while investing hard"
		}
		return st.Stage, "hard launch continuing"

	case domain.StageLaunchSoft:
		if !hasProfit {
			return st.Stage, "no profit data yet"
		}
		if level == seoHigh && latest.NetProfitJPY >= 0 && latest.Tacos <= st.InvestTacosCap {
			return domain.StageGrow, "SEO high with breakeven and TACOS in band"
		}
		if latest.MonthsSinceLaunch > window && level == seoLow && latest.NetProfitCumJPY < 0 {
			return domain.StageHarvest, "window exceeded with low SEO and cumulative loss"
		}
		return st.Stage, "soft launch continuing"

	case domain.StageGrow:
		if !hasProfit {
			return st.Stage, "no profit data yet"
		}
		if level == seoHigh && (in.Seo.Trend == domain.TrendUp || in.Seo.Trend == domain.TrendFlat) &&
			latest.Tacos <= st.SustainableTacos && latest.NetProfitJPY >= 0 {
			return domain.StageHarvest, "position established: high stable SEO at sustainable TACOS"
		}
		if st.ReinvestAllowed && in.Seo.Trend == domain.TrendDown && latest.NetProfitCumJPY >= 0 {
			return domain.StageLaunchSoft, "reinvesting against slipping SEO"
		}
		return st.Stage, "growing"

	case domain.StageHarvest:
		// Sticky: no automatic return.
		return st.Stage, "harvest is sticky"
	}

	return st.Stage, "unknown stage"
}
