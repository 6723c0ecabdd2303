package bid

import "github.com/harunaga/adpilot/internal/domain"

// ClassifyInput is what the action classifier looks at.
type ClassifyInput struct {
	AcosActual  float64
	AcosTarget  float64
	Clicks      int64
	Phase       domain.Phase
	BrandType   domain.BrandType
	Role        domain.KeywordRole
	InvestMode  bool // lifecycle stage is LAUNCH_HARD or LAUNCH_SOFT
	Mode        domain.EngineMode
}

// AcosRatio is actual over target; a target of zero reads as far over.
func (in ClassifyInput) AcosRatio() float64 {
	if in.AcosTarget <= 0 {
		return 99
	}
	return in.AcosActual / in.AcosTarget
}

// Classify maps the input to an action plus its reason code.
//
// Data starvation comes first: with too few clicks nothing else is trusted.
// Then piecewise thresholds on the ACOS ratio, looser in invest mode.
// Two post-hoc overrides: BRAND_OWN collapses STRONG_DOWN/STOP to MILD_DOWN,
// and a freeze phase forces KEEP.
func Classify(cfg Config, in ClassifyInput) (domain.Action, domain.BidReason) {
	action, reason := classifyRaw(cfg, in)

	if in.Role == domain.RoleBrandOwn {
		if action == domain.ActionStop || action == domain.ActionStrongDown {
			action, reason = domain.ActionMildDown, domain.BidReasonBrandProtected
		}
	}
	if in.Phase == domain.PhaseSFreeze {
		action, reason = domain.ActionKeep, domain.BidReasonFreezePhase
	}
	return action, reason
}

func classifyRaw(cfg Config, in ClassifyInput) (domain.Action, domain.BidReason) {
	if in.Clicks < cfg.MinClicksForDecision {
		if in.InvestMode {
			return domain.ActionMildUp, domain.BidReasonInsufficientClicks
		}
		return domain.ActionKeep, domain.BidReasonInsufficientClicks
	}

	r := in.AcosRatio()
	if in.InvestMode {
		switch {
		case r < 0.7:
			return domain.ActionStrongUp, domain.BidReasonAcosUnderTarget
		case r < 0.9:
			return domain.ActionMildUp, domain.BidReasonAcosUnderTarget
		case r < 1.1:
			return domain.ActionKeep, domain.BidReasonAcosNearTarget
		case r < 1.3:
			return domain.ActionMildDown, domain.BidReasonAcosOverTarget
		default:
			return domain.ActionStrongDown, domain.BidReasonAcosFarOverTarget
		}
	}

	switch {
	case r < 0.5:
		return domain.ActionStrongUp, domain.BidReasonAcosUnderTarget
	case r < 0.8:
		return domain.ActionMildUp, domain.BidReasonAcosUnderTarget
	case r < 1.2:
		return domain.ActionKeep, domain.BidReasonAcosNearTarget
	case r < 1.5:
		return domain.ActionMildDown, domain.BidReasonAcosOverTarget
	case r < 2.0:
		return domain.ActionStrongDown, domain.BidReasonAcosFarOverTarget
	default:
		return domain.ActionStop, domain.BidReasonAcosFarOverTarget
	}
}
