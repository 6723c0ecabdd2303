package bid

import "github.com/harunaga/adpilot/internal/domain"

// CoefficientInput feeds the seven-knob calculator. Coefficients depend on
// the already-classified action because several knobs are direction-matched.
type CoefficientInput struct {
	Metrics domain.KeywordMetrics
	Action  domain.Action
	Mode    domain.EngineMode
}

// ComputeCoefficients derives the seven multiplicative coefficients. The
// tabulated break-points are the calibration of the engine; changing them
// changes behavior, not correctness.
func ComputeCoefficients(cfg Config, in CoefficientInput) domain.Coefficients {
	return domain.Coefficients{
		Phase:      phaseCoefficient(in),
		Cvr:        cvrCoefficient(in),
		RankGap:    rankGapCoefficient(in),
		Competitor: competitorCoefficient(in),
		Brand:      brandCoefficient(in),
		Stats:      statsCoefficient(cfg, in),
		Tos:        tosCoefficient(in),
	}
}

// phaseCoefficient: NORMAL is always 1.0; S-mode phases use a fixed table.
func phaseCoefficient(in CoefficientInput) float64 {
	if in.Mode != domain.ModeSMode {
		return 1.0
	}
	switch in.Metrics.Phase {
	case domain.PhaseSPre1:
		return 1.2
	case domain.PhaseSPre2:
		return 1.5
	case domain.PhaseSFreeze:
		return 0.0
	case domain.PhaseSNormal:
		return 1.3
	case domain.PhaseSFinal:
		return 1.8
	case domain.PhaseSRevert:
		return 0.8
	default:
		return 1.0
	}
}

// cvrCoefficient compares recent CVR against baseline. Break-points at
// ±10%, ±30%, ±40% relative delta; the S-mode curve is steeper and only
// engages when the delta direction agrees with the action direction.
func cvrCoefficient(in CoefficientInput) float64 {
	base := in.Metrics.CvrBaseline
	if base <= 0 {
		return 1.0
	}
	delta := (in.Metrics.CvrRecent - base) / base

	if in.Mode == domain.ModeSMode {
		switch {
		case in.Action.IsUp() && delta >= 0.4:
			return 1.5
		case in.Action.IsUp() && delta >= 0.3:
			return 1.3
		case in.Action.IsUp() && delta >= 0.1:
			return 1.15
		case in.Action.IsDown() && delta <= -0.4:
			return 0.5
		case in.Action.IsDown() && delta <= -0.3:
			return 0.7
		case in.Action.IsDown() && delta <= -0.1:
			return 0.85
		default:
			return 1.0
		}
	}

	switch {
	case delta >= 0.4:
		return 1.3
	case delta >= 0.3:
		return 1.2
	case delta >= 0.1:
		return 1.1
	case delta <= -0.4:
		return 0.7
	case delta <= -0.3:
		return 0.8
	case delta <= -0.1:
		return 0.9
	default:
		return 1.0
	}
}

// rankGapCoefficient only engages for directional actions. A keyword ranked
// below its target accelerates UP; one ranked above target accelerates DOWN.
func rankGapCoefficient(in CoefficientInput) float64 {
	if in.Metrics.RankCurrent <= 0 || in.Metrics.RankTarget <= 0 {
		return 1.0
	}
	gap := in.Metrics.RankCurrent - in.Metrics.RankTarget
	if in.Action.IsUp() && gap >= 1 {
		switch {
		case gap >= 10:
			return 1.3
		case gap >= 5:
			return 1.2
		default:
			return 1.1
		}
	}
	if in.Action.IsDown() && gap <= -1 {
		switch {
		case gap <= -10:
			return 0.7
		case gap <= -5:
			return 0.8
		default:
			return 0.9
		}
	}
	return 1.0
}

// competitorCoefficient accelerates UP when competitor CPC rose against its
// baseline and the competitor is strong; eases DOWN when competition faded.
func competitorCoefficient(in CoefficientInput) float64 {
	base := in.Metrics.CompetitorCPCBaseline
	if base <= 0 {
		return 1.0
	}
	ratio := in.Metrics.CompetitorCPCCurrent / base
	strength := in.Metrics.CompetitorStrength

	if in.Action.IsUp() {
		if ratio >= 1.2 && strength >= 0.6 {
			return 1.2
		}
		if ratio >= 1.1 {
			return 1.1
		}
	}
	if in.Action.IsDown() && ratio <= 0.9 {
		return 0.9
	}
	return 1.0
}

// brandCoefficient: own-brand keywords push harder up and resist down;
// conquest keywords temper STRONG_UP.
func brandCoefficient(in CoefficientInput) float64 {
	switch in.Metrics.BrandType {
	case domain.BrandTypeBrand:
		if in.Action.IsUp() {
			return 1.2
		}
		if in.Action.IsDown() {
			return 0.8
		}
	case domain.BrandTypeConquest:
		if in.Action == domain.ActionStrongUp {
			return 0.9
		}
	}
	return 1.0
}

// statsCoefficient damps moves made on thin click evidence.
func statsCoefficient(cfg Config, in CoefficientInput) float64 {
	clicks := in.Metrics.Clicks30d
	switch {
	case clicks < cfg.MinClicksForDecision:
		return 0.5
	case clicks >= cfg.MinClicksForTos:
		return 1.1
	case clicks >= cfg.MinClicksForConfident:
		return 1.0
	default:
		return 0.8
	}
}

// tosCoefficient only engages in S-mode for TOS-targeted keywords moving up.
// The combined placement multiplier picks the tier.
func tosCoefficient(in CoefficientInput) float64 {
	if in.Mode != domain.ModeSMode || !in.Metrics.TosTargeted || !in.Action.IsUp() {
		return 1.0
	}
	m := in.Metrics.TosCtrMult * in.Metrics.TosCvrMult
	switch {
	case m >= 2.5:
		return 1.8
	case m >= 2.0:
		return 1.5
	case m >= 1.5:
		return 1.3
	default:
		return 1.2
	}
}
