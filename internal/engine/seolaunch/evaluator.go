// Package seolaunch classifies a product's core keywords as ACHIEVED,
// GAVE_UP or ACTIVE during the launch push, rolls them up per product, and
// decides when to exit the launch stage.
package seolaunch

import (
	"fmt"

	"github.com/harunaga/adpilot/internal/domain"
)

// KeywordVerdict is one keyword's classification with its audit trail.
type KeywordVerdict struct {
	Keyword    string
	Status     domain.LaunchKeywordStatus
	Reason     string
	Thresholds GiveUpThresholds
}

// Evaluator is the pure C6 engine.
type Evaluator struct {
	cfg Config
}

// NewEvaluator builds a launch evaluator.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// ProductInput is everything C6 needs for one ASIN.
type ProductInput struct {
	ASIN         string
	CoreKeywords []domain.CoreKeywordConfig
	RankSummary  map[string]domain.KeywordRankSummary // by keyword
	TargetCPAJPY float64
}

// EvaluateProduct classifies every core keyword and rolls up the progress.
// Conservation holds by construction: every keyword lands in exactly one of
// the three buckets.
func (e *Evaluator) EvaluateProduct(in ProductInput) (domain.AsinSeoLaunchProgress, []KeywordVerdict) {
	median := medianVolume(in.CoreKeywords)

	progress := domain.AsinSeoLaunchProgress{ASIN: in.ASIN, Total: len(in.CoreKeywords)}
	verdicts := make([]KeywordVerdict, 0, len(in.CoreKeywords))

	for _, kw := range in.CoreKeywords {
		th := resolveThresholds(e.cfg, kw, median)
		v := KeywordVerdict{Keyword: kw.Keyword, Thresholds: th}

		summary, tracked := in.RankSummary[kw.Keyword]
		if !tracked {
			v.Status = domain.LaunchActive
			v.Reason = "no rank summary yet"
		} else {
			v.Status, v.Reason = e.classify(kw, summary, th, in.TargetCPAJPY)
		}

		switch v.Status {
		case domain.LaunchAchieved:
			progress.Achieved++
		case domain.LaunchGaveUp:
			progress.GaveUp++
		default:
			progress.Active++
		}
		verdicts = append(verdicts, v)
	}

	if progress.Total > 0 {
		progress.CompletionRatio = float64(progress.Achieved+progress.GaveUp) / float64(progress.Total)
		progress.SuccessRatio = float64(progress.Achieved) / float64(progress.Total)
	}
	return progress, verdicts
}

// classify applies the ACHIEVED gate first, then the two give-up paths.
func (e *Evaluator) classify(kw domain.CoreKeywordConfig, s domain.KeywordRankSummary, th GiveUpThresholds, targetCPA float64) (domain.LaunchKeywordStatus, string) {
	if s.CurrentRank != nil && *s.CurrentRank <= kw.TargetRankMax &&
		s.ImpressionsTotal >= e.cfg.MinImpressionsForRank &&
		s.ClicksTotal >= e.cfg.MinClicksForRank {
		return domain.LaunchAchieved, fmt.Sprintf("rank %d within target %d", *s.CurrentRank, kw.TargetRankMax)
	}

	// Both give-up paths share the day/click/cost gating: enough time, enough
	// clicks, enough money burned.
	gated := s.DaysWithRankData >= th.MinDays &&
		s.ClicksTotal >= th.MinClicks &&
		targetCPA > 0 && s.CostTotalJPY >= targetCPA*e.cfg.CostMultiplier

	if gated {
		// Rank-failure path: never got anywhere near the threshold.
		if s.BestRank == nil || *s.BestRank > th.RankThreshold {
			best := "none"
			if s.BestRank != nil {
				best = fmt.Sprintf("%d", *s.BestRank)
			}
			return domain.LaunchGaveUp, fmt.Sprintf("best rank %s never reached %d", best, th.RankThreshold)
		}
		// Performance-failure path: rank came, conversions never did.
		if s.Cvr() <= e.cfg.MaxCvrForGiveUp && s.Acos() >= e.cfg.MaxAcosForGiveUp {
			return domain.LaunchGaveUp, fmt.Sprintf("cvr=%.4f acos=%.2f after %d clicks", s.Cvr(), s.Acos(), s.ClicksTotal)
		}
	}

	return domain.LaunchActive, "still in progress"
}
