package seolaunch

import (
	"fmt"
	"math"

	"github.com/harunaga/adpilot/internal/domain"
)

// ExitConfig holds the launch-exit decider's thresholds.
type ExitConfig struct {
	EmergencyLossRatio       float64 `yaml:"emergency_loss_ratio"`        // ratio_stage above this exits immediately, 1.2
	LaunchInvestCritical     float64 `yaml:"launch_invest_critical"`      // invest-window usage at/above this exits, 0.95
	MinCoreCompletionRatio   float64 `yaml:"min_core_completion_ratio"`   // 0.8
	SeoCompletionWarning     float64 `yaml:"seo_completion_warning"`      // 0.6, early-exit partial bar
	MinLaunchDays            int     `yaml:"min_launch_days"`             // 60
	MinAsinClicksTotal       int64   `yaml:"min_asin_clicks_total"`       // 1000, before volume scaling
	MinAsinOrdersTotal       int64   `yaml:"min_asin_orders_total"`       // 30, before volume scaling
	RefDailySales            float64 `yaml:"ref_daily_sales"`             // units/day anchoring volume scale
	MinVolumeScale           float64 `yaml:"min_volume_scale"`            // 0.5
	MaxVolumeScale           float64 `yaml:"max_volume_scale"`            // 2.0
}

// DefaultExitConfig is the offline-calibrated baseline.
func DefaultExitConfig() ExitConfig {
	return ExitConfig{
		EmergencyLossRatio:     1.2,
		LaunchInvestCritical:   0.95,
		MinCoreCompletionRatio: 0.8,
		SeoCompletionWarning:   0.6,
		MinLaunchDays:          60,
		MinAsinClicksTotal:     1000,
		MinAsinOrdersTotal:     30,
		RefDailySales:          5.0,
		MinVolumeScale:         0.5,
		MaxVolumeScale:         2.0,
	}
}

// ExitInput feeds the three-priority decision tree for one launch product.
type ExitInput struct {
	ASIN             string
	Stage            domain.LifecycleStage
	Progress         domain.AsinSeoLaunchProgress
	LossBudget       domain.LossBudgetSummary
	DaysSinceLaunch  int
	AsinClicksTotal  int64
	AsinOrdersTotal  int64
	AvgDailySales30d float64
}

// DecideExit runs the decision tree: emergency (loss axis) first, then the
// normal SEO-complete exit, then the early warning exit. Click and order
// bars scale with sales velocity; time and completion bars do not.
func DecideExit(cfg ExitConfig, in ExitInput) domain.LaunchExitDecision {
	scale := clamp(in.AvgDailySales30d/cfg.RefDailySales, cfg.MinVolumeScale, cfg.MaxVolumeScale)
	th := domain.EffectiveExitThresholds{
		VolumeScale:        scale,
		MinLaunchDays:      cfg.MinLaunchDays,
		MinAsinClicksTotal: int64(math.Round(float64(cfg.MinAsinClicksTotal) * scale)),
		MinAsinOrdersTotal: int64(math.Round(float64(cfg.MinAsinOrdersTotal) * scale)),
		MinCompletionRatio: cfg.MinCoreCompletionRatio,
	}

	d := domain.LaunchExitDecision{
		ASIN:            in.ASIN,
		Kind:            domain.ExitContinue,
		TargetStage:     in.Stage,
		CompletionRatio: in.Progress.CompletionRatio,
		Thresholds:      th,
	}
	if !in.Stage.IsLaunch() {
		d.ReasonCode = domain.ExitReasonInProgress
		d.ReasonDetail = "not in a launch stage"
		return d
	}

	// 1. Emergency exit on the loss axis.
	switch {
	case in.LossBudget.State == domain.InvestBreach:
		return emergency(d, domain.ExitReasonLossBudgetBreach, "loss budget breached")
	case in.LossBudget.RatioStage > cfg.EmergencyLossRatio:
		return emergency(d, domain.ExitReasonLossRatioEmergency,
			fmt.Sprintf("stage loss ratio %.2f > %.2f", in.LossBudget.RatioStage, cfg.EmergencyLossRatio))
	case in.LossBudget.LaunchInvestUsage >= cfg.LaunchInvestCritical:
		return emergency(d, domain.ExitReasonInvestWindowCritical,
			fmt.Sprintf("invest window usage %.2f >= %.2f", in.LossBudget.LaunchInvestUsage, cfg.LaunchInvestCritical))
	}

	// 2. Normal exit: SEO push done plus at least one trial condition.
	trialDone := in.DaysSinceLaunch >= th.MinLaunchDays ||
		in.AsinClicksTotal >= th.MinAsinClicksTotal ||
		in.AsinOrdersTotal >= th.MinAsinOrdersTotal
	if in.Progress.CompletionRatio >= cfg.MinCoreCompletionRatio && trialDone {
		d.Kind = domain.ExitNormal
		d.ShouldExit = true
		d.TargetStage = domain.StageGrow
		d.ReasonCode = domain.ExitReasonSeoCompleted
		d.ReasonDetail = fmt.Sprintf("completion %.2f >= %.2f, trial satisfied", in.Progress.CompletionRatio, cfg.MinCoreCompletionRatio)
		return d
	}

	// 3. Early exit: warning-zone loss budget with partial completion.
	if in.LossBudget.State == domain.InvestWarning && in.Progress.CompletionRatio >= cfg.SeoCompletionWarning {
		d.Kind = domain.ExitEarly
		d.ShouldExit = true
		d.TargetStage = domain.StageGrow
		d.ReasonCode = domain.ExitReasonEarlyWarningPartial
		d.ReasonDetail = fmt.Sprintf("loss budget WARNING with completion %.2f >= %.2f", in.Progress.CompletionRatio, cfg.SeoCompletionWarning)
		return d
	}

	// 4. Continue.
	if in.LossBudget.State == domain.InvestSafe {
		d.ReasonCode = domain.ExitReasonLossBudgetOK
		d.ReasonDetail = "launch continuing within loss budget"
	} else {
		d.ReasonCode = domain.ExitReasonInProgress
		d.ReasonDetail = fmt.Sprintf("completion %.2f, loss budget %s", in.Progress.CompletionRatio, in.LossBudget.State)
	}
	return d
}

func emergency(d domain.LaunchExitDecision, code domain.LaunchExitReasonCode, detail string) domain.LaunchExitDecision {
	d.Kind = domain.ExitEmergency
	d.ShouldExit = true
	d.IsEmergency = true
	d.TargetStage = domain.StageGrow
	d.ReasonCode = code
	d.ReasonDetail = detail
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
