package warehouse

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/harunaga/adpilot/internal/apperr"
	"github.com/harunaga/adpilot/internal/backtest"
	"github.com/harunaga/adpilot/internal/domain"
)

// Source is the read side of the warehouse the orchestrator loads from.
type Source interface {
	KeywordMetrics(ctx context.Context, asin string) ([]domain.KeywordMetrics, error)
	ProductStrategies(ctx context.Context) ([]domain.ProductStrategy, error)
	MonthlyProfits(ctx context.Context, asin string) ([]domain.MonthlyProfit, error)
	SeoScores(ctx context.Context) ([]domain.SeoScore, error)
	CoreKeywords(ctx context.Context, asin string) ([]domain.CoreKeywordConfig, error)
	RankSummaries(ctx context.Context, asin string) ([]domain.KeywordRankSummary, error)
	LossBudgets(ctx context.Context) ([]domain.LossBudgetSummary, error)
	BudgetMetrics(ctx context.Context) ([]domain.BudgetMetrics, error)
	SearchTerms(ctx context.Context, since time.Time) ([]domain.SearchTermStats, error)
	BacktestRecommendations(ctx context.Context, from, to time.Time) ([]backtest.HistoricalRecommendation, error)
	BacktestOutcomes(ctx context.Context, from, to time.Time) ([]backtest.KeywordOutcome, error)
}

// SQLSource implements Source over sqlx. Queries use `?` placeholders and go
// through Rebind so the same SQL runs on both drivers.
type SQLSource struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ Source = (*SQLSource)(nil)

func (s *SQLSource) selectCtx(ctx context.Context, op string, dest interface{}, query string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...); err != nil {
		return &apperr.SinkError{Sink: "warehouse", Op: op, Err: err}
	}
	return nil
}

// KeywordMetrics loads the 60-day keyword view, optionally for one ASIN.
func (s *SQLSource) KeywordMetrics(ctx context.Context, asin string) ([]domain.KeywordMetrics, error) {
	query := `
		SELECT keyword_id, keyword, campaign_id, ad_group_id, asin, current_bid_jpy,
		       impressions_3h, impressions_7d, impressions_30d,
		       clicks_7d, clicks_30d, clicks_60d,
		       spend_jpy_30d, sales_jpy_30d, orders_30d,
		       cvr_recent, cvr_baseline, ctr_recent, ctr_baseline,
		       acos_actual, acos_target,
		       competitor_cpc_current, competitor_cpc_baseline, competitor_strength,
		       tos_targeted, tos_ctr_mult, tos_cvr_mult,
		       rank_current, rank_target, phase, brand_type, role, score_rank
		FROM keyword_metrics_60d`
	var out []domain.KeywordMetrics
	if asin != "" {
		err := s.selectCtx(ctx, "keyword_metrics", &out, query+` WHERE asin = ?`, asin)
		return out, err
	}
	err := s.selectCtx(ctx, "keyword_metrics", &out, query)
	return out, err
}

// ProductStrategies loads every product's lifecycle posture.
func (s *SQLSource) ProductStrategies(ctx context.Context) ([]domain.ProductStrategy, error) {
	var out []domain.ProductStrategy
	err := s.selectCtx(ctx, "product_strategies", &out, `
		SELECT asin, stage, strategy_pattern, sustainable_tacos, invest_tacos_cap,
		       invest_max_loss_jpy_month, invest_window_months, invest_window_extension,
		       launch_date, margin_rate, unit_price_jpy,
		       review_rating, review_count, reinvest_allowed
		FROM product_strategy`)
	return out, err
}

// MonthlyProfits loads a product's profit series, oldest first.
func (s *SQLSource) MonthlyProfits(ctx context.Context, asin string) ([]domain.MonthlyProfit, error) {
	var out []domain.MonthlyProfit
	err := s.selectCtx(ctx, "monthly_profits", &out, `
		SELECT asin, month, revenue_jpy, cogs_jpy, gross_profit_before_ads_jpy,
		       ad_spend_jpy, ad_sales_jpy, tacos, acos, roas,
		       net_profit_jpy, net_profit_cum_jpy, months_since_launch
		FROM monthly_profit_by_product
		WHERE asin = ?
		ORDER BY month ASC`, asin)
	return out, err
}

// SeoScores loads the latest SEO score per product.
func (s *SQLSource) SeoScores(ctx context.Context) ([]domain.SeoScore, error) {
	var out []domain.SeoScore
	err := s.selectCtx(ctx, "seo_scores", &out, `
		SELECT asin, month, overall, trend, zone, avg_rank, best_rank, tracked_count
		FROM seo_score_by_product
		WHERE (asin, month) IN (SELECT asin, MAX(month) FROM seo_score_by_product GROUP BY asin)`)
	return out, err
}

// CoreKeywords loads the SEO-push designations for a product.
func (s *SQLSource) CoreKeywords(ctx context.Context, asin string) ([]domain.CoreKeywordConfig, error) {
	var out []domain.CoreKeywordConfig
	err := s.selectCtx(ctx, "core_keywords", &out, `
		SELECT asin, keyword, tier, target_rank_min, target_rank_max, search_volume, role
		FROM core_keyword_config
		WHERE asin = ?`, asin)
	return out, err
}

// RankSummaries loads the per-keyword rank rollups for a product.
func (s *SQLSource) RankSummaries(ctx context.Context, asin string) ([]domain.KeywordRankSummary, error) {
	var out []domain.KeywordRankSummary
	err := s.selectCtx(ctx, "rank_summaries", &out, `
		SELECT asin, keyword, current_rank, best_rank, days_with_rank_data,
		       impressions_total, clicks_total, orders_total,
		       cost_total_jpy, revenue_total_jpy
		FROM keyword_rank_summary
		WHERE asin = ?`, asin)
	return out, err
}

// LossBudgets loads every product's loss-budget summary.
func (s *SQLSource) LossBudgets(ctx context.Context) ([]domain.LossBudgetSummary, error) {
	var out []domain.LossBudgetSummary
	err := s.selectCtx(ctx, "loss_budgets", &out, `
		SELECT asin, state, ratio_rolling, ratio_stage, launch_invest_usage,
		       warning_threshold, critical_threshold, monthly_allowance_jpy,
		       cumulative_loss_jpy, consecutive_loss_months
		FROM loss_budget_summary`)
	return out, err
}

// BudgetMetrics loads the per-campaign budget view.
func (s *SQLSource) BudgetMetrics(ctx context.Context) ([]domain.BudgetMetrics, error) {
	var out []domain.BudgetMetrics
	err := s.selectCtx(ctx, "budget_metrics", &out, `
		SELECT campaign_id, campaign_name, daily_budget_jpy, spend_today_jpy,
		       budget_usage_percent, lost_impression_share_budget,
		       spend_jpy_7d, sales_jpy_7d, orders_7d, acos_7d, cvr_7d,
		       spend_jpy_30d, sales_jpy_30d, orders_30d, acos_30d, cvr_30d,
		       target_acos, low_usage_days, tos_placement_percent
		FROM campaign_budget_metrics`)
	return out, err
}

// SearchTerms loads the search-term rollups accumulated since a date.
func (s *SQLSource) SearchTerms(ctx context.Context, since time.Time) ([]domain.SearchTermStats, error) {
	var out []domain.SearchTermStats
	err := s.selectCtx(ctx, "search_terms", &out, `
		SELECT asin, campaign_id, ad_group_id, query, impressions, clicks, conversions,
		       spend_jpy, sales_jpy, baseline_cvr, target_acos, matched_keyword
		FROM search_term_stats
		WHERE window_start >= ?`, since)
	return out, err
}

// BacktestRecommendations loads stored bid decisions for a date range.
func (s *SQLSource) BacktestRecommendations(ctx context.Context, from, to time.Time) ([]backtest.HistoricalRecommendation, error) {
	var out []backtest.HistoricalRecommendation
	err := s.selectCtx(ctx, "backtest_recommendations", &out, `
		SELECT keyword_id, date, asin, campaign_id, action, old_bid_jpy, new_bid_jpy
		FROM bid_recommendations
		WHERE date >= ? AND date <= ?`, from.Format("2006-01-02"), to.Format("2006-01-02"))
	return out, err
}

// BacktestOutcomes loads keyword x day actuals for a date range.
func (s *SQLSource) BacktestOutcomes(ctx context.Context, from, to time.Time) ([]backtest.KeywordOutcome, error) {
	var out []backtest.KeywordOutcome
	err := s.selectCtx(ctx, "backtest_outcomes", &out, `
		SELECT keyword_id, date, asin, campaign_id, bid_jpy, impressions, clicks,
		       orders, spend_jpy, sales_jpy, target_acos
		FROM keyword_daily_outcomes
		WHERE date >= ? AND date <= ?`, from.Format("2006-01-02"), to.Format("2006-01-02"))
	return out, err
}
