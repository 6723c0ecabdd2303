package negative

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harunaga/adpilot/internal/domain"
)

func term(query string, imp, clicks, conv int64, spend, sales float64) domain.SearchTermStats {
	return domain.SearchTermStats{
		ASIN: "B000TEST01", CampaignID: "C1", AdGroupID: "G1",
		Query: query, Impressions: imp, Clicks: clicks, Conversions: conv,
		SpendJPY: spend, SalesJPY: sales,
		BaselineCvr: 0.05, TargetAcos: 0.30, MatchedKeyword: "water bottle",
	}
}

// Scenario S7: 60 clicks, zero conversions, baseline CVR 0.05 and neutral
// risk needs exactly 60 clicks, so the cluster stops.
func TestJudger_RuleOfThreeStop(t *testing.T) {
	j := NewJudger(DefaultConfig(), nil)

	assert.Equal(t, int64(60), j.RequiredClicksForStop(0.05))

	out := j.Run([]domain.SearchTermStats{term("bottle opener", 3000, 60, 0, 4800, 0)})
	assert.Len(t, out, 1)
	assert.Equal(t, domain.PhaseStopCandidate, out[0].Phase)
	assert.Equal(t, domain.VerdictStop, out[0].Verdict)
	assert.Equal(t, domain.NegReasonRuleOfThree, out[0].ReasonCode)
	assert.Equal(t, "NEGATIVE_EXACT", out[0].MatchType)
}

func TestJudger_RequiredClicksScaling(t *testing.T) {
	cfg := DefaultConfig()
	j := NewJudger(cfg, nil)

	// Baseline floor keeps the bar finite for near-zero baselines.
	assert.Equal(t, int64(300), j.RequiredClicksForStop(0.001))
	// High baselines floor at the minimum.
	assert.Equal(t, int64(10), j.RequiredClicksForStop(0.5))

	// Lower risk tolerance raises the bar, higher lowers it.
	cfg.RiskTolerance = 0.2
	assert.Equal(t, int64(78), NewJudger(cfg, nil).RequiredClicksForStop(0.05))
	cfg.RiskTolerance = 0.8
	assert.Equal(t, int64(42), NewJudger(cfg, nil).RequiredClicksForStop(0.05))
}

func TestJudger_LearningPhaseNeverActs(t *testing.T) {
	j := NewJudger(DefaultConfig(), nil)

	out := j.Run([]domain.SearchTermStats{term("bottle opener", 900, 15, 0, 1200, 0)})
	assert.Equal(t, domain.PhaseLearning, out[0].Phase)
	assert.Equal(t, domain.VerdictNone, out[0].Verdict)
	assert.Equal(t, domain.NegReasonLearningPhase, out[0].ReasonCode)
}

func TestJudger_LimitedActionCapsAtDown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RiskTolerance = 0.9 // bar drops to 36 clicks at baseline 0.05
	j := NewJudger(cfg, nil)

	// 40 clicks clears the stop bar statistically but the phase is still
	// LIMITED_ACTION, so the verdict is capped.
	out := j.Run([]domain.SearchTermStats{term("bottle opener", 2000, 40, 0, 3200, 0)})
	assert.Equal(t, domain.PhaseLimitedAction, out[0].Phase)
	assert.Equal(t, domain.VerdictDown, out[0].Verdict)
	assert.Equal(t, domain.NegReasonLimitedAction, out[0].ReasonCode)
}

func TestJudger_LongTailGuard(t *testing.T) {
	j := NewJudger(DefaultConfig(), nil)

	out := j.Run([]domain.SearchTermStats{term("obscure misspeling", 120, 3, 0, 250, 0)})
	assert.Equal(t, domain.VerdictManualReview, out[0].Verdict)
	assert.Equal(t, domain.NegReasonLongTailGuard, out[0].ReasonCode)

	// Either bar alone does not trip the guard.
	out = j.Run([]domain.SearchTermStats{term("busy but thin", 5000, 3, 0, 250, 0)})
	assert.NotEqual(t, domain.VerdictManualReview, out[0].Verdict)
}

func TestJudger_WhitelistLoosensOnly(t *testing.T) {
	wl := NewWhitelist(WhitelistConfig{Global: []string{"bottle opener"}})
	j := NewJudger(DefaultConfig(), wl)

	out := j.Run([]domain.SearchTermStats{term("bottle opener", 3000, 60, 0, 4800, 0)})
	assert.Equal(t, domain.VerdictNone, out[0].Verdict, "whitelist suppresses STOP entirely")
	assert.Equal(t, domain.NegReasonWhitelisted, out[0].ReasonCode)
	assert.Empty(t, out[0].MatchType)

	// A whitelist never upgrades a verdict.
	out = j.Run([]domain.SearchTermStats{term("bottle opener deluxe", 2000, 40, 3, 900, 9000)})
	assert.Equal(t, domain.VerdictNone, out[0].Verdict)
	assert.Equal(t, domain.NegReasonWithinTargets, out[0].ReasonCode)
}

func TestJudger_WhitelistPerASIN(t *testing.T) {
	wl := NewWhitelist(WhitelistConfig{ByASIN: map[string][]string{
		"B000TEST01": {"bottle opener"},
	}})
	j := NewJudger(DefaultConfig(), wl)

	stoppable := term("bottle opener", 3000, 60, 0, 4800, 0)
	out := j.Run([]domain.SearchTermStats{stoppable})
	assert.Equal(t, domain.VerdictNone, out[0].Verdict, "listed ASIN is protected")

	other := stoppable
	other.ASIN = "B000OTHER99"
	out = j.Run([]domain.SearchTermStats{other})
	assert.Equal(t, domain.VerdictStop, out[0].Verdict, "protection does not leak across ASINs")
}

func TestJudger_WhitelistAutoTopSpend(t *testing.T) {
	// Top-1 by spend for the ASIN is the stoppable cluster itself: detection
	// protects it; the cheaper cluster still stops.
	wl := NewWhitelist(WhitelistConfig{AutoTopSpendN: 1})
	big := term("bottle opener", 3000, 60, 0, 4800, 0)
	small := term("rusty opener", 3000, 60, 0, 1200, 0)
	wl.DetectTopSpend([]domain.SearchTermStats{big, small})

	j := NewJudger(DefaultConfig(), wl)
	out := j.Run([]domain.SearchTermStats{big, small})
	byQuery := map[string]domain.NegativeVerdict{}
	for _, s := range out {
		byQuery[s.Query] = s.Verdict
	}
	assert.Equal(t, domain.VerdictNone, byQuery["bottle opener"], "top spender is protected")
	assert.Equal(t, domain.VerdictStop, byQuery["rusty opener"])
}

func TestJudger_ConvertingHeuristics(t *testing.T) {
	j := NewJudger(DefaultConfig(), nil)

	// CVR 1/80 = 0.0125 is under half the 0.05 baseline.
	out := j.Run([]domain.SearchTermStats{term("water jug", 4000, 80, 1, 6400, 3000)})
	assert.Equal(t, domain.VerdictDown, out[0].Verdict)
	assert.Equal(t, domain.NegReasonLowCvr, out[0].ReasonCode)

	// Healthy CVR but ACOS 0.50 over 1.5 x 0.30 target.
	out = j.Run([]domain.SearchTermStats{term("water jug", 4000, 80, 5, 5000, 10000)})
	assert.Equal(t, domain.VerdictDown, out[0].Verdict)
	assert.Equal(t, domain.NegReasonHighAcos, out[0].ReasonCode)

	// Both healthy.
	out = j.Run([]domain.SearchTermStats{term("water jug", 4000, 80, 5, 2000, 10000)})
	assert.Equal(t, domain.VerdictNone, out[0].Verdict)
	assert.Equal(t, domain.NegReasonWithinTargets, out[0].ReasonCode)
}

func TestJudger_ClustersAcrossQueryVariants(t *testing.T) {
	j := NewJudger(DefaultConfig(), nil)

	// Same canonical query and intent: counters merge into one cluster that
	// crosses the stop bar only in aggregate.
	out := j.Run([]domain.SearchTermStats{
		term("Bottle  Opener", 2000, 35, 0, 2800, 0),
		term("bottle opener", 1500, 25, 0, 2000, 0),
	})
	assert.Len(t, out, 1)
	assert.Equal(t, int64(60), out[0].Clicks)
	assert.Equal(t, domain.VerdictStop, out[0].Verdict)

	// A different intent splits the cluster.
	out = j.Run([]domain.SearchTermStats{
		term("bottle opener", 1500, 25, 0, 2000, 0),
		term("bottle opener for kids", 1500, 25, 0, 2000, 0),
	})
	assert.Len(t, out, 2)
}
