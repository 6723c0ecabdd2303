package backtest

import "math"

// clickElasticity dampens the click response to bid changes: doubling the
// bid does not double the clicks.
const clickElasticity = 0.8

// simOutcome is the counterfactual performance of one keyword x day under
// the recommended bid.
type simOutcome struct {
	Clicks   float64
	Orders   float64
	SpendJPY float64
	SalesJPY float64
}

// simulate re-derives what the recommended bid would have produced from the
// actual outcome. CVR and order value are held constant; clicks scale with
// bidRatio^elasticity and CPC scales linearly with the bid. Days with no
// actual clicks pass through unchanged since there is no response to scale.
func simulate(rec HistoricalRecommendation, out KeywordOutcome) simOutcome {
	if out.Clicks == 0 || out.BidJPY <= 0 || rec.NewBidJPY <= 0 {
		return simOutcome{
			Clicks:   float64(out.Clicks),
			Orders:   float64(out.Orders),
			SpendJPY: out.SpendJPY,
			SalesJPY: out.SalesJPY,
		}
	}

	ratio := float64(rec.NewBidJPY) / float64(out.BidJPY)
	actualClicks := float64(out.Clicks)
	actualCPC := out.SpendJPY / actualClicks
	cvr := float64(out.Orders) / actualClicks
	aov := 0.0
	if out.Orders > 0 {
		aov = out.SalesJPY / float64(out.Orders)
	}

	simClicks := actualClicks * math.Pow(ratio, clickElasticity)
	simCPC := actualCPC * ratio
	simOrders := simClicks * cvr

	return simOutcome{
		Clicks:   simClicks,
		Orders:   simOrders,
		SpendJPY: simClicks * simCPC,
		SalesJPY: simOrders * aov,
	}
}

// optimalSign is the post-hoc best direction for a keyword day: +1 raise,
// -1 lower, 0 keep. Judged on actual ACOS against the target with a 10%
// neutral band; spend without sales is always a lower.
func optimalSign(out KeywordOutcome) int {
	if out.TargetAcos <= 0 {
		return 0
	}
	if out.SalesJPY <= 0 {
		if out.SpendJPY > 0 {
			return -1
		}
		return 0
	}
	acos := out.SpendJPY / out.SalesJPY
	switch {
	case acos < out.TargetAcos*0.9:
		return 1
	case acos > out.TargetAcos*1.1:
		return -1
	default:
		return 0
	}
}

// decisionSign maps a recommendation to its direction.
func decisionSign(rec HistoricalRecommendation) int {
	switch {
	case rec.Action.IsUp():
		return 1
	case rec.Action.IsDown():
		return -1
	default:
		return 0
	}
}
