package bid

import (
	"fmt"

	"github.com/harunaga/adpilot/internal/domain"
)

// Guardrails bound which actions and step sizes are permitted for one
// (role, lifecycle, sale-phase, presale, loss-budget) tuple.
type Guardrails struct {
	AllowStop              bool
	AllowStrongDown        bool
	MaxDownStepRatio       float64
	MinClicksForStop       int64
	MinClicksForStrongDown int64
	OverspendRatioForStop  float64
}

// GuardrailInput is the tuple the resolver keys on, plus the observed spend
// needed for the overspend check.
type GuardrailInput struct {
	Role       domain.KeywordRole
	Stage      domain.LifecycleStage
	Phase      domain.Phase
	LossBudget domain.InvestmentState
	Clicks     int64
	SpendJPY   float64
	TargetCPA  float64 // unit price x margin; 0 disables the overspend gate
}

// ResolveGuardrails computes the constraint set. Rules, in order:
// defaults → CORE x LAUNCH_* tightening → BRAND_OWN protection →
// loss-budget BREACH relaxation → presale freeze. The presale freeze wins
// over everything except the BRAND_OWN stop ban, which is absolute.
func ResolveGuardrails(cfg GuardrailConfig, in GuardrailInput) Guardrails {
	g := Guardrails{
		AllowStop:              true,
		AllowStrongDown:        true,
		MaxDownStepRatio:       cfg.MaxDownStepRatio,
		MinClicksForStop:       cfg.MinClicksForStop,
		MinClicksForStrongDown: cfg.MinClicksForStrongDown,
		OverspendRatioForStop:  cfg.OverspendRatioForStop,
	}

	if in.Role == domain.RoleCore && in.Stage == domain.StageLaunchHard {
		g.AllowStop = false
		g.AllowStrongDown = false
		g.MaxDownStepRatio = cfg.CoreLaunchHardDownStep
	}
	if in.Role == domain.RoleCore && in.Stage == domain.StageLaunchSoft {
		g.AllowStop = false
		g.MaxDownStepRatio = cfg.CoreLaunchSoftDownStep
	}
	if in.Role == domain.RoleBrandOwn {
		g.AllowStop = false
		g.AllowStrongDown = false
		g.MaxDownStepRatio = cfg.BrandOwnDownStep
	}

	if in.LossBudget == domain.InvestBreach {
		// A breached loss budget relaxes every DOWN limit; the BRAND_OWN and
		// CORE x LAUNCH_HARD stop bans stay.
		g.AllowStrongDown = true
		g.MaxDownStepRatio = cfg.BreachDownStep
		if in.Role != domain.RoleBrandOwn && !(in.Role == domain.RoleCore && in.Stage == domain.StageLaunchHard) {
			g.AllowStop = true
		}
	}

	if in.Phase.IsPresale() {
		// Presale periods freeze DOWN entirely.
		g.AllowStop = false
		g.AllowStrongDown = false
		g.MaxDownStepRatio = 0
	}

	return g
}

// Recheck validates an action against the guardrails and falls back along
// STOP → STRONG_DOWN → MILD_DOWN → KEEP until one passes. It returns the
// final action and whether any fallback happened.
func (g Guardrails) Recheck(action domain.Action, in GuardrailInput) (domain.Action, bool) {
	fell := false
	for {
		ok := true
		switch action {
		case domain.ActionStop:
			ok = g.AllowStop &&
				in.Clicks >= g.MinClicksForStop &&
				(in.TargetCPA <= 0 || in.SpendJPY >= g.OverspendRatioForStop*in.TargetCPA)
		case domain.ActionStrongDown:
			ok = g.AllowStrongDown && in.Clicks >= g.MinClicksForStrongDown
		case domain.ActionMildDown:
			ok = g.MaxDownStepRatio > 0
		}
		if ok {
			return action, fell
		}
		fell = true
		next := action.Milder()
		if next == action {
			return domain.ActionKeep, fell
		}
		action = next
	}
}

// Describe renders the active limits for reason detail.
func (g Guardrails) Describe() string {
	return fmt.Sprintf("stop=%t strong_down=%t max_down=%.2f", g.AllowStop, g.AllowStrongDown, g.MaxDownStepRatio)
}
