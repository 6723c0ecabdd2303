// Package negative implements the search-term negative judger: clusters the
// search-term stream by canonical query and intent, gates verdicts by the
// cluster's accumulated clicks, and proposes STOP (negative exact) only once
// the rule-of-three click bar is met with zero conversions. The auto-exact
// promoter, the inverse operation, also lives here.
package negative

import (
	"fmt"
	"math"

	"github.com/harunaga/adpilot/internal/domain"
)

// Judger is the pure clustering-and-verdict engine.
type Judger struct {
	cfg       Config
	tagger    *Tagger
	whitelist *Whitelist
}

// NewJudger builds a judger. whitelist may be nil.
func NewJudger(cfg Config, whitelist *Whitelist) *Judger {
	if whitelist == nil {
		whitelist = NewWhitelist(WhitelistConfig{})
	}
	return &Judger{cfg: cfg, tagger: NewTagger(cfg.Tagger), whitelist: whitelist}
}

// Tagger exposes the judger's intent tagger for callers that need cluster
// keys outside a run.
func (j *Judger) Tagger() *Tagger { return j.tagger }

// Run clusters the rows and judges every cluster. One suggestion per cluster,
// in deterministic order.
func (j *Judger) Run(stats []domain.SearchTermStats) []domain.NegativeKeywordSuggestion {
	clusters := BuildClusters(j.tagger, stats)
	out := make([]domain.NegativeKeywordSuggestion, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, j.judge(c))
	}
	return out
}

// PhaseOf maps accumulated clicks to the cluster phase.
func (j *Judger) PhaseOf(clicks int64) domain.ClusterPhase {
	switch {
	case clicks < j.cfg.LearningMaxClicks:
		return domain.PhaseLearning
	case clicks < j.cfg.LimitedActionMaxClicks:
		return domain.PhaseLimitedAction
	default:
		return domain.PhaseStopCandidate
	}
}

// RequiredClicksForStop is the rule-of-three bar: the clicks needed before a
// zero-conversion cluster can be stopped, scaled by risk tolerance and
// floored at the configured minimum.
func (j *Judger) RequiredClicksForStop(baselineCvr float64) int64 {
	base := math.Max(baselineCvr, j.cfg.MinBaselineCvr)
	required := 3.0 / base * (1.0 - (j.cfg.RiskTolerance - 0.5))
	n := int64(math.Ceil(required))
	if n < j.cfg.MinClicksForStop {
		n = j.cfg.MinClicksForStop
	}
	return n
}

func (j *Judger) judge(c Cluster) domain.NegativeKeywordSuggestion {
	s := domain.NegativeKeywordSuggestion{
		ASIN:        c.ASIN,
		CampaignID:  c.CampaignID,
		AdGroupID:   c.AdGroupID,
		Query:       c.Query,
		ClusterKey:  c.Key,
		Intent:      c.Intent,
		Phase:       j.PhaseOf(c.Clicks),
		Clicks:      c.Clicks,
		Conversions: c.Conversions,
		SpendJPY:    c.SpendJPY,
	}

	// Thin long-tail clusters are never judged automatically.
	if c.Impressions < j.cfg.LongTailMaxImpressions && c.Clicks < j.cfg.LongTailMaxClicks && c.Conversions == 0 {
		s.Verdict = domain.VerdictManualReview
		s.ReasonCode = domain.NegReasonLongTailGuard
		s.ReasonDetail = fmt.Sprintf("%d impressions / %d clicks is too thin to judge", c.Impressions, c.Clicks)
		return s
	}

	if s.Phase == domain.PhaseLearning {
		s.Verdict = domain.VerdictNone
		s.ReasonCode = domain.NegReasonLearningPhase
		s.ReasonDetail = fmt.Sprintf("%d clicks, learning until %d", c.Clicks, j.cfg.LearningMaxClicks)
		return s
	}

	verdict, code, detail := j.classify(c, s.Phase)
	s.Verdict, s.ReasonCode, s.ReasonDetail = verdict, code, detail

	// Whitelist loosens, never tightens: a protected query is never stopped.
	if s.Verdict == domain.VerdictStop && j.whitelist.Matches(c.ASIN, c.Key) {
		s.Verdict = domain.VerdictNone
		s.ReasonCode = domain.NegReasonWhitelisted
		s.ReasonDetail = "whitelisted: stop suppressed (" + detail + ")"
	}
	if s.Verdict == domain.VerdictStop {
		s.MatchType = "NEGATIVE_EXACT"
	}
	return s
}

func (j *Judger) classify(c Cluster, phase domain.ClusterPhase) (domain.NegativeVerdict, domain.NegativeReason, string) {
	if c.Conversions == 0 {
		required := j.RequiredClicksForStop(c.BaselineCvr)
		if c.Clicks >= required {
			if phase == domain.PhaseStopCandidate {
				return domain.VerdictStop, domain.NegReasonRuleOfThree,
					fmt.Sprintf("%d clicks with zero conversions, required %d at baseline CVR %.3f", c.Clicks, required, c.BaselineCvr)
			}
			// Statistically dead but still in the limited phase: only bid-down.
			return domain.VerdictDown, domain.NegReasonLimitedAction,
				fmt.Sprintf("zero conversions at %d clicks, limited phase caps at bid-down", c.Clicks)
		}
		return domain.VerdictDown, domain.NegReasonLowCvr,
			fmt.Sprintf("zero conversions at %d clicks, below the %d-click stop bar", c.Clicks, required)
	}

	if c.BaselineCvr > 0 && c.Cvr() < c.BaselineCvr*j.cfg.LowCvrRatio {
		return domain.VerdictDown, domain.NegReasonLowCvr,
			fmt.Sprintf("CVR %.4f under %.0f%% of baseline %.4f", c.Cvr(), j.cfg.LowCvrRatio*100, c.BaselineCvr)
	}
	if c.TargetAcos > 0 && c.Acos() > c.TargetAcos*j.cfg.HighAcosRatio {
		return domain.VerdictDown, domain.NegReasonHighAcos,
			fmt.Sprintf("ACOS %.3f over %.1fx target %.3f", c.Acos(), j.cfg.HighAcosRatio, c.TargetAcos)
	}
	return domain.VerdictNone, domain.NegReasonWithinTargets, "converting within targets"
}
