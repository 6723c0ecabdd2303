package backtest

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunaga/adpilot/internal/domain"
)

func runner() *Runner {
	return NewRunner(zerolog.Nop())
}

func rec(kw, date string, action domain.Action, oldBid, newBid int64) HistoricalRecommendation {
	return HistoricalRecommendation{
		KeywordID: kw, Date: date, ASIN: "B000TEST01", CampaignID: "C1",
		Action: action, OldBidJPY: oldBid, NewBidJPY: newBid,
	}
}

func outcome(kw, date string, bid, clicks, orders int64, spend, sales float64) KeywordOutcome {
	return KeywordOutcome{
		KeywordID: kw, Date: date, ASIN: "B000TEST01", CampaignID: "C1",
		BidJPY: bid, Impressions: clicks * 20, Clicks: clicks, Orders: orders,
		SpendJPY: spend, SalesJPY: sales, TargetAcos: 0.25,
	}
}

func params() Params {
	return Params{
		From:        time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		Granularity: domain.GranularityDaily,
		MarginRate:  0.3,
	}
}

func TestSimulate_ScalesClicksAndCPC(t *testing.T) {
	r := rec("kw1", "2026-07-01", domain.ActionStrongUp, 100, 150)
	o := outcome("kw1", "2026-07-01", 100, 40, 2, 4000, 12000)

	sim := simulate(r, o)
	// ratio 1.5: clicks x 1.5^0.8, CPC x 1.5, CVR and AOV constant.
	assert.InDelta(t, 55.33, sim.Clicks, 0.01)
	assert.InDelta(t, 8299.0, sim.SpendJPY, 1.0)
	assert.InDelta(t, 2.766, sim.Orders, 0.001)
	assert.InDelta(t, 16598.0, sim.SalesJPY, 1.0)
}

func TestSimulate_ZeroClicksPassesThrough(t *testing.T) {
	r := rec("kw1", "2026-07-01", domain.ActionStrongUp, 100, 200)
	o := outcome("kw1", "2026-07-01", 100, 0, 0, 0, 0)

	sim := simulate(r, o)
	assert.Zero(t, sim.Clicks)
	assert.Zero(t, sim.SpendJPY)
}

// Property 8: accuracyRate == correct/total and total == matched count.
func TestRun_AccuracyRate(t *testing.T) {
	recs := []HistoricalRecommendation{
		// ACOS 0.10 under target: raising was right.
		rec("kw1", "2026-07-01", domain.ActionStrongUp, 100, 130),
		// ACOS 0.50 over target: raising was wrong.
		rec("kw2", "2026-07-01", domain.ActionMildUp, 100, 110),
		// Spend without sales: lowering was right.
		rec("kw3", "2026-07-02", domain.ActionStop, 100, 0),
		// No matching outcome: excluded from the join entirely.
		rec("kw9", "2026-07-02", domain.ActionKeep, 100, 100),
	}
	outs := []KeywordOutcome{
		outcome("kw1", "2026-07-01", 100, 40, 3, 1000, 10000),
		outcome("kw2", "2026-07-01", 100, 40, 1, 2000, 4000),
		outcome("kw3", "2026-07-02", 100, 30, 0, 2400, 0),
	}

	res := runner().Run(params(), recs, outs)
	assert.Equal(t, 3, res.Accuracy.TotalDecisions)
	assert.Equal(t, 3, res.Meta.MatchedCount)
	assert.Equal(t, 2, res.Accuracy.CorrectDecisions)
	assert.InDelta(t, 2.0/3.0, res.Accuracy.AccuracyRate, 1e-9)
}

func TestRun_FiltersAndRange(t *testing.T) {
	p := params()
	p.ASIN = "B000OTHER"

	res := runner().Run(p,
		[]HistoricalRecommendation{rec("kw1", "2026-07-01", domain.ActionKeep, 100, 100)},
		[]KeywordOutcome{outcome("kw1", "2026-07-01", 100, 10, 1, 800, 4000)},
	)
	assert.Zero(t, res.Meta.MatchedCount)

	p = params()
	res = runner().Run(p,
		[]HistoricalRecommendation{rec("kw1", "2026-08-05", domain.ActionKeep, 100, 100)},
		[]KeywordOutcome{outcome("kw1", "2026-08-05", 100, 10, 1, 800, 4000)},
	)
	assert.Zero(t, res.Meta.MatchedCount, "outside the range")
}

func TestRun_ImprovementBlock(t *testing.T) {
	// A single DOWN recommendation on an over-target keyword.
	recs := []HistoricalRecommendation{rec("kw1", "2026-07-01", domain.ActionStrongDown, 100, 85)}
	outs := []KeywordOutcome{outcome("kw1", "2026-07-01", 100, 40, 2, 4000, 8000)}

	res := runner().Run(params(), recs, outs)
	spendDelta := res.Simulated.SpendJPY - res.Actual.SpendJPY
	salesDelta := res.Simulated.SalesJPY - res.Actual.SalesJPY
	assert.InDelta(t, spendDelta, res.Improvement.SpendDeltaJPY, 1e-9)
	assert.InDelta(t, salesDelta*0.3-spendDelta, res.Improvement.EstProfitGainJPY, 1e-9)
	assert.Less(t, res.Simulated.SpendJPY, res.Actual.SpendJPY, "lower bid spends less")
	assert.Negative(t, res.Improvement.AcosPoints, "lower bid improves ACOS here")
}

func TestRun_WeeklyAggregation(t *testing.T) {
	p := params()
	p.Granularity = domain.GranularityWeekly

	// Wed 2026-07-01 and Thu 2026-07-02 share the Mon 2026-06-29 bucket;
	// Mon 2026-07-06 starts the next week.
	recs := []HistoricalRecommendation{
		rec("kw1", "2026-07-01", domain.ActionKeep, 100, 100),
		rec("kw2", "2026-07-02", domain.ActionKeep, 100, 100),
		rec("kw3", "2026-07-06", domain.ActionKeep, 100, 100),
	}
	outs := []KeywordOutcome{
		outcome("kw1", "2026-07-01", 100, 10, 1, 800, 4000),
		outcome("kw2", "2026-07-02", 100, 10, 1, 800, 4000),
		outcome("kw3", "2026-07-06", 100, 10, 1, 800, 4000),
	}

	res := runner().Run(p, recs, outs)
	require.Len(t, res.Series, 2)
	assert.Equal(t, "2026-06-29", res.Series[0].Date)
	assert.Equal(t, 2, res.Series[0].Matched)
	assert.Equal(t, "2026-07-06", res.Series[1].Date)
}

func TestResult_WriteCSV(t *testing.T) {
	res := runner().Run(params(),
		[]HistoricalRecommendation{rec("kw1", "2026-07-01", domain.ActionKeep, 100, 100)},
		[]KeywordOutcome{outcome("kw1", "2026-07-01", 100, 10, 1, 800, 4000)},
	)

	var buf bytes.Buffer
	require.NoError(t, res.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3) // header, one day, totals
	assert.True(t, strings.HasPrefix(lines[0], "date,matched,actual_spend_jpy"))
	assert.True(t, strings.HasPrefix(lines[2], "TOTAL,1,"))
}
