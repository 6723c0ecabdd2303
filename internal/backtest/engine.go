package backtest

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harunaga/adpilot/internal/domain"
)

const dateLayout = "2006-01-02"

// Runner is the pure replay engine. Loading the historical rows is the
// caller's job (the warehouse layer); Run itself touches no I/O.
type Runner struct {
	log zerolog.Logger
}

// NewRunner builds a backtest runner.
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{log: log}
}

// Run joins recommendations to outcomes on (keywordId, date), simulates each
// matched row, and aggregates per the requested granularity.
func (r *Runner) Run(p Params, recs []HistoricalRecommendation, outcomes []KeywordOutcome) Result {
	started := time.Now()

	type key struct{ id, date string }
	outByKey := make(map[key]KeywordOutcome, len(outcomes))
	for _, o := range outcomes {
		if !r.keep(p, o.ASIN, o.CampaignID, o.Date) {
			continue
		}
		outByKey[key{o.KeywordID, o.Date}] = o
	}

	daily := make(map[string]*Point)
	var actual, simulated Totals
	var acc Accuracy

	for _, rec := range recs {
		if !r.keep(p, rec.ASIN, rec.CampaignID, rec.Date) {
			continue
		}
		out, ok := outByKey[key{rec.KeywordID, rec.Date}]
		if !ok {
			continue
		}
		sim := simulate(rec, out)

		pt, ok := daily[rec.Date]
		if !ok {
			pt = &Point{Date: rec.Date}
			daily[rec.Date] = pt
		}
		pt.Matched++
		pt.ActualSpend += out.SpendJPY
		pt.ActualSales += out.SalesJPY
		pt.SimSpend += sim.SpendJPY
		pt.SimSales += sim.SalesJPY

		actual.SpendJPY += out.SpendJPY
		actual.SalesJPY += out.SalesJPY
		actual.Orders += float64(out.Orders)
		simulated.SpendJPY += sim.SpendJPY
		simulated.SalesJPY += sim.SalesJPY
		simulated.Orders += sim.Orders

		acc.TotalDecisions++
		if decisionSign(rec) == optimalSign(out) {
			acc.CorrectDecisions++
		}
	}

	series := make([]Point, 0, len(daily))
	for _, pt := range daily {
		finishPoint(pt)
		series = append(series, *pt)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })

	if p.Granularity == "" {
		p.Granularity = domain.GranularityDaily
	}
	if p.Granularity == domain.GranularityWeekly {
		series = aggregateWeekly(series)
	}

	actual.Acos = safeRatio(actual.SpendJPY, actual.SalesJPY)
	simulated.Acos = safeRatio(simulated.SpendJPY, simulated.SalesJPY)
	if acc.TotalDecisions > 0 {
		acc.AccuracyRate = float64(acc.CorrectDecisions) / float64(acc.TotalDecisions)
	}

	spendDelta := simulated.SpendJPY - actual.SpendJPY
	salesDelta := simulated.SalesJPY - actual.SalesJPY
	res := Result{
		Params:    p,
		Series:    series,
		Actual:    actual,
		Simulated: simulated,
		Improvement: Improvement{
			AcosPoints:       simulated.Acos - actual.Acos,
			SpendDeltaJPY:    spendDelta,
			SalesDeltaJPY:    salesDelta,
			EstProfitGainJPY: salesDelta*p.MarginRate - spendDelta,
		},
		Accuracy: acc,
		Meta: Meta{
			ExecutionID:         uuid.NewString(),
			GeneratedAt:         time.Now().UTC(),
			DurationMs:          time.Since(started).Milliseconds(),
			RecommendationCount: len(recs),
			OutcomeCount:        len(outcomes),
			MatchedCount:        acc.TotalDecisions,
		},
	}

	r.log.Info().
		Str("execution_id", res.Meta.ExecutionID).
		Int("matched", res.Meta.MatchedCount).
		Float64("acos_points", res.Improvement.AcosPoints).
		Float64("est_profit_gain_jpy", res.Improvement.EstProfitGainJPY).
		Msg("backtest complete")
	return res
}

// keep applies the date range and optional entity filters.
func (r *Runner) keep(p Params, asin, campaignID, date string) bool {
	if p.ASIN != "" && asin != p.ASIN {
		return false
	}
	if p.CampaignID != "" && campaignID != p.CampaignID {
		return false
	}
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return false
	}
	if !p.From.IsZero() && d.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && d.After(p.To) {
		return false
	}
	return true
}

func finishPoint(pt *Point) {
	pt.ActualAcos = safeRatio(pt.ActualSpend, pt.ActualSales)
	pt.SimAcos = safeRatio(pt.SimSpend, pt.SimSales)
	pt.SpendDelta = pt.SimSpend - pt.ActualSpend
	pt.SalesDelta = pt.SimSales - pt.ActualSales
}

// aggregateWeekly rolls daily points into ISO weeks keyed by the Monday.
func aggregateWeekly(daily []Point) []Point {
	byWeek := make(map[string]*Point)
	for _, d := range daily {
		t, err := time.Parse(dateLayout, d.Date)
		if err != nil {
			continue
		}
		monday := t.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7)).Format(dateLayout)
		pt, ok := byWeek[monday]
		if !ok {
			pt = &Point{Date: monday}
			byWeek[monday] = pt
		}
		pt.Matched += d.Matched
		pt.ActualSpend += d.ActualSpend
		pt.ActualSales += d.ActualSales
		pt.SimSpend += d.SimSpend
		pt.SimSales += d.SimSales
	}
	out := make([]Point, 0, len(byWeek))
	for _, pt := range byWeek {
		finishPoint(pt)
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func safeRatio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
