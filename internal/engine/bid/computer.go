package bid

import (
	"fmt"
	"math"

	"github.com/harunaga/adpilot/internal/domain"
)

// BidResult is the output of the bid computer for one keyword.
type BidResult struct {
	ChangeRate float64
	NewBidJPY  int64
	Clipped    bool
	ClipReason string
}

// baseRate returns the signed per-action base change rate scaled by the
// keyword's score rank (higher-priority keywords move harder).
func baseRate(cfg Config, scoreRank int, action domain.Action) float64 {
	var base float64
	switch action {
	case domain.ActionStrongUp:
		base = cfg.BaseRates.StrongUp
	case domain.ActionMildUp:
		base = cfg.BaseRates.MildUp
	case domain.ActionMildDown:
		base = cfg.BaseRates.MildDown
	case domain.ActionStrongDown:
		base = cfg.BaseRates.StrongDown
	case domain.ActionStop:
		base = cfg.BaseRates.Stop
	default:
		return 0
	}

	scale := cfg.MidRankScale
	switch {
	case scoreRank <= 0:
		scale = cfg.MidRankScale
	case scoreRank <= cfg.TopRankBoundary:
		scale = cfg.TopRankScale
	case scoreRank <= cfg.MidRankBoundary:
		scale = cfg.MidRankScale
	default:
		scale = cfg.TailRankScale
	}
	return base * scale
}

// ComputeBid combines the base rate with the coefficient product, clips the
// change rate by the global bounds and the guardrail down-step cap, and
// rounds the new bid at or above the floor. Clip accounting names whichever
// bound truncated the raw rate.
func ComputeBid(cfg Config, g Guardrails, m domain.KeywordMetrics, action domain.Action, coeffs domain.Coefficients) BidResult {
	raw := baseRate(cfg, m.ScoreRank, action) * coeffs.Product()

	rate := raw
	clipped := false
	clipReason := ""

	if rate > cfg.MaxBidIncreaseRate {
		rate = cfg.MaxBidIncreaseRate
		clipped = true
		clipReason = "max_bid_increase_rate"
	}
	if rate < cfg.MaxBidDecreaseRate {
		rate = cfg.MaxBidDecreaseRate
		clipped = true
		clipReason = "max_bid_decrease_rate"
	}
	if rate < 0 && -rate > g.MaxDownStepRatio {
		rate = -g.MaxDownStepRatio
		clipped = true
		clipReason = "guardrail_max_down_step"
	}

	newBid := int64(math.Round(float64(m.CurrentBidJPY) * (1 + rate)))
	if newBid < cfg.MinBidJPY {
		newBid = cfg.MinBidJPY
		if !clipped {
			clipped = true
			clipReason = "min_bid"
		} else {
			clipReason = fmt.Sprintf("%s,min_bid", clipReason)
		}
	}

	return BidResult{
		ChangeRate: rate,
		NewBidJPY:  newBid,
		Clipped:    clipped,
		ClipReason: clipReason,
	}
}
