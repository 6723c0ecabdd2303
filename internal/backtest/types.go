// Package backtest replays stored bid recommendations against stored
// per-keyword daily outcomes and computes the counterfactual: what spend,
// sales and ACOS would have been had the recommendations been applied.
package backtest

import (
	"time"

	"github.com/harunaga/adpilot/internal/domain"
)

// Params select and shape one backtest run.
type Params struct {
	From        time.Time          `json:"from"`
	To          time.Time          `json:"to"`
	ASIN        string             `json:"asin,omitempty"`        // optional filter
	CampaignID  string             `json:"campaign_id,omitempty"` // optional filter
	Granularity domain.Granularity `json:"granularity"`
	MarginRate  float64            `json:"margin_rate"`
}

// HistoricalRecommendation is one stored bid decision, keyed for the join.
type HistoricalRecommendation struct {
	KeywordID  string        `json:"keyword_id" db:"keyword_id"`
	Date       string        `json:"date" db:"date"` // "2006-01-02"
	ASIN       string        `json:"asin" db:"asin"`
	CampaignID string        `json:"campaign_id" db:"campaign_id"`
	Action     domain.Action `json:"action" db:"action"`
	OldBidJPY  int64         `json:"old_bid_jpy" db:"old_bid_jpy"`
	NewBidJPY  int64         `json:"new_bid_jpy" db:"new_bid_jpy"`
}

// KeywordOutcome is one stored keyword x day actual-performance row.
type KeywordOutcome struct {
	KeywordID   string  `json:"keyword_id" db:"keyword_id"`
	Date        string  `json:"date" db:"date"`
	ASIN        string  `json:"asin" db:"asin"`
	CampaignID  string  `json:"campaign_id" db:"campaign_id"`
	BidJPY      int64   `json:"bid_jpy" db:"bid_jpy"`
	Impressions int64   `json:"impressions" db:"impressions"`
	Clicks      int64   `json:"clicks" db:"clicks"`
	Orders      int64   `json:"orders" db:"orders"`
	SpendJPY    float64 `json:"spend_jpy" db:"spend_jpy"`
	SalesJPY    float64 `json:"sales_jpy" db:"sales_jpy"`
	TargetAcos  float64 `json:"target_acos" db:"target_acos"`
}

// Point is one bucket of the result series (a day, or a week when weekly
// aggregation is requested).
type Point struct {
	Date         string  `json:"date"` // bucket start
	Matched      int     `json:"matched"`
	ActualSpend  float64 `json:"actual_spend_jpy"`
	ActualSales  float64 `json:"actual_sales_jpy"`
	ActualAcos   float64 `json:"actual_acos"`
	SimSpend     float64 `json:"sim_spend_jpy"`
	SimSales     float64 `json:"sim_sales_jpy"`
	SimAcos      float64 `json:"sim_acos"`
	SpendDelta   float64 `json:"spend_delta_jpy"`
	SalesDelta   float64 `json:"sales_delta_jpy"`
}

// Totals sums one side of the replay.
type Totals struct {
	SpendJPY float64 `json:"spend_jpy"`
	SalesJPY float64 `json:"sales_jpy"`
	Orders   float64 `json:"orders"`
	Acos     float64 `json:"acos"`
}

// Improvement is the counterfactual delta block.
type Improvement struct {
	AcosPoints          float64 `json:"acos_points"` // simulated minus actual, negative is better
	SpendDeltaJPY       float64 `json:"spend_delta_jpy"`
	SalesDeltaJPY       float64 `json:"sales_delta_jpy"`
	EstProfitGainJPY    float64 `json:"est_profit_gain_jpy"` // salesDelta x margin - spendDelta
}

// Accuracy measures how often the recommendation's direction matched the
// post-hoc optimal direction.
type Accuracy struct {
	CorrectDecisions int     `json:"correct_decisions"`
	TotalDecisions   int     `json:"total_decisions"`
	AccuracyRate     float64 `json:"accuracy_rate"`
}

// Meta is the run's bookkeeping block.
type Meta struct {
	ExecutionID         string    `json:"execution_id"`
	GeneratedAt         time.Time `json:"generated_at"`
	DurationMs          int64     `json:"duration_ms"`
	RecommendationCount int       `json:"recommendation_count"`
	OutcomeCount        int       `json:"outcome_count"`
	MatchedCount        int       `json:"matched_count"`
}

// Result is the full persistable backtest output.
type Result struct {
	Params      Params      `json:"params"`
	Series      []Point     `json:"series"`
	Actual      Totals      `json:"actual"`
	Simulated   Totals      `json:"simulated"`
	Improvement Improvement `json:"improvement"`
	Accuracy    Accuracy    `json:"accuracy"`
	Meta        Meta        `json:"meta"`
}
