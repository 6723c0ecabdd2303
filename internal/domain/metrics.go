package domain

import "time"

// KeywordMetrics is one row of the keyword_metrics_60d warehouse view: the
// full per-keyword signal set the bid engine decides on. Snapshot-immutable
// within a run.
type KeywordMetrics struct {
	KeywordID  string `json:"keyword_id" db:"keyword_id"`
	Keyword    string `json:"keyword" db:"keyword"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`
	AdGroupID  string `json:"ad_group_id" db:"ad_group_id"`
	ASIN       string `json:"asin" db:"asin"`

	CurrentBidJPY int64 `json:"current_bid_jpy" db:"current_bid_jpy"`

	// Rolling counters.
	Impressions3h  int64   `json:"impressions_3h" db:"impressions_3h"`
	Impressions7d  int64   `json:"impressions_7d" db:"impressions_7d"`
	Impressions30d int64   `json:"impressions_30d" db:"impressions_30d"`
	Clicks7d       int64   `json:"clicks_7d" db:"clicks_7d"`
	Clicks30d      int64   `json:"clicks_30d" db:"clicks_30d"`
	Clicks60d      int64   `json:"clicks_60d" db:"clicks_60d"`
	SpendJPY30d    float64 `json:"spend_jpy_30d" db:"spend_jpy_30d"`
	SalesJPY30d    float64 `json:"sales_jpy_30d" db:"sales_jpy_30d"`
	Orders30d      int64   `json:"orders_30d" db:"orders_30d"`

	// Derived rates.
	CvrRecent   float64 `json:"cvr_recent" db:"cvr_recent"`
	CvrBaseline float64 `json:"cvr_baseline" db:"cvr_baseline"`
	CtrRecent   float64 `json:"ctr_recent" db:"ctr_recent"`
	CtrBaseline float64 `json:"ctr_baseline" db:"ctr_baseline"`
	AcosActual  float64 `json:"acos_actual" db:"acos_actual"`
	AcosTarget  float64 `json:"acos_target" db:"acos_target"`

	// Competitive signals.
	CompetitorCPCCurrent  float64 `json:"competitor_cpc_current" db:"competitor_cpc_current"`
	CompetitorCPCBaseline float64 `json:"competitor_cpc_baseline" db:"competitor_cpc_baseline"`
	CompetitorStrength    float64 `json:"competitor_strength" db:"competitor_strength"` // [0,1]

	// Placement (top-of-search) signals.
	TosTargeted bool    `json:"tos_targeted" db:"tos_targeted"`
	TosCtrMult  float64 `json:"tos_ctr_mult" db:"tos_ctr_mult"`
	TosCvrMult  float64 `json:"tos_cvr_mult" db:"tos_cvr_mult"`

	// Organic rank. RankCurrent 0 means out of range.
	RankCurrent int `json:"rank_current" db:"rank_current"`
	RankTarget  int `json:"rank_target" db:"rank_target"`

	Phase     Phase       `json:"phase" db:"phase"`
	BrandType BrandType   `json:"brand_type" db:"brand_type"`
	Role      KeywordRole `json:"role" db:"role"`
	ScoreRank int         `json:"score_rank" db:"score_rank"` // pre-computed priority, 1 = highest
}

// ProductStrategy is one row of product_strategy: the per-product lifecycle
// and investment posture. Stage and StrategyPattern always agree (pattern is
// the lowercase of the stage).
type ProductStrategy struct {
	ASIN                  string         `json:"asin" db:"asin"`
	Stage                 LifecycleStage `json:"stage" db:"stage"`
	StrategyPattern       string         `json:"strategy_pattern" db:"strategy_pattern"`
	SustainableTacos      float64        `json:"sustainable_tacos" db:"sustainable_tacos"`
	InvestTacosCap        float64        `json:"invest_tacos_cap" db:"invest_tacos_cap"`
	InvestMaxLossJPYMonth int64          `json:"invest_max_loss_jpy_month" db:"invest_max_loss_jpy_month"`
	InvestWindowMonths    int            `json:"invest_window_months" db:"invest_window_months"`
	InvestWindowExtension int            `json:"invest_window_extension" db:"invest_window_extension"`
	LaunchDate            time.Time      `json:"launch_date" db:"launch_date"`
	MarginRate            float64        `json:"margin_rate" db:"margin_rate"`
	UnitPriceJPY          int64          `json:"unit_price_jpy" db:"unit_price_jpy"`
	ReviewRating          float64        `json:"review_rating" db:"review_rating"`
	ReviewCount           int            `json:"review_count" db:"review_count"`
	ReinvestAllowed       bool           `json:"reinvest_allowed" db:"reinvest_allowed"`
	BrandTerms            []string       `json:"brand_terms" db:"-"`
	ProductCoreTerms      []string       `json:"product_core_terms" db:"-"`
}

// EffectiveWindowMonths is the invest window including dynamic extension.
func (p ProductStrategy) EffectiveWindowMonths() int {
	return p.InvestWindowMonths + p.InvestWindowExtension
}

// MonthlyProfit is one row of monthly_profit_by_product.
type MonthlyProfit struct {
	ASIN                 string  `json:"asin" db:"asin"`
	Month                string  `json:"month" db:"month"` // "2025-07"
	RevenueJPY           float64 `json:"revenue_jpy" db:"revenue_jpy"`
	CogsJPY              float64 `json:"cogs_jpy" db:"cogs_jpy"`
	GrossProfitBeforeAds float64 `json:"gross_profit_before_ads_jpy" db:"gross_profit_before_ads_jpy"`
	AdSpendJPY           float64 `json:"ad_spend_jpy" db:"ad_spend_jpy"`
	AdSalesJPY           float64 `json:"ad_sales_jpy" db:"ad_sales_jpy"`
	Tacos                float64 `json:"tacos" db:"tacos"`
	Acos                 float64 `json:"acos" db:"acos"`
	Roas                 float64 `json:"roas" db:"roas"`
	NetProfitJPY         float64 `json:"net_profit_jpy" db:"net_profit_jpy"`
	NetProfitCumJPY      float64 `json:"net_profit_cum_jpy" db:"net_profit_cum_jpy"`
	MonthsSinceLaunch    int     `json:"months_since_launch" db:"months_since_launch"`
}

// SeoScore is one row of seo_score_by_product.
type SeoScore struct {
	ASIN         string             `json:"asin" db:"asin"`
	Month        string             `json:"month" db:"month"`
	Overall      float64            `json:"overall" db:"overall"` // 0..100
	Trend        SeoTrend           `json:"trend" db:"trend"`
	Zone         RankZone           `json:"zone" db:"zone"`
	RoleScores   map[string]float64 `json:"role_scores" db:"-"`
	AvgRank      float64            `json:"avg_rank" db:"avg_rank"`
	BestRank     int                `json:"best_rank" db:"best_rank"`
	TrackedCount int                `json:"tracked_count" db:"tracked_count"`
}

// CoreKeywordConfig designates a keyword for SEO push with its target band.
type CoreKeywordConfig struct {
	ASIN          string      `json:"asin" db:"asin"`
	Keyword       string      `json:"keyword" db:"keyword"`
	Tier          KeywordTier `json:"tier" db:"tier"`
	TargetRankMin int         `json:"target_rank_min" db:"target_rank_min"`
	TargetRankMax int         `json:"target_rank_max" db:"target_rank_max"`
	SearchVolume  int64       `json:"search_volume" db:"search_volume"`
	Role          KeywordRole `json:"role" db:"role"`
}

// KeywordRankSummary aggregates a keyword's rank series over a window.
// CurrentRank and BestRank are nil when the keyword never ranked in range.
type KeywordRankSummary struct {
	ASIN             string  `json:"asin" db:"asin"`
	Keyword          string  `json:"keyword" db:"keyword"`
	CurrentRank      *int    `json:"current_rank" db:"current_rank"`
	BestRank         *int    `json:"best_rank" db:"best_rank"`
	DaysWithRankData int     `json:"days_with_rank_data" db:"days_with_rank_data"`
	ImpressionsTotal int64   `json:"impressions_total" db:"impressions_total"`
	ClicksTotal      int64   `json:"clicks_total" db:"clicks_total"`
	OrdersTotal      int64   `json:"orders_total" db:"orders_total"`
	CostTotalJPY     float64 `json:"cost_total_jpy" db:"cost_total_jpy"`
	RevenueTotalJPY  float64 `json:"revenue_total_jpy" db:"revenue_total_jpy"`
}

// Cvr is orders per click over the window (0 when no clicks).
func (k KeywordRankSummary) Cvr() float64 {
	if k.ClicksTotal == 0 {
		return 0
	}
	return float64(k.OrdersTotal) / float64(k.ClicksTotal)
}

// Acos is cost over revenue for the window. Returns +Inf-like sentinel
// (a very large ratio) when revenue is zero but cost is not.
func (k KeywordRankSummary) Acos() float64 {
	if k.RevenueTotalJPY <= 0 {
		if k.CostTotalJPY > 0 {
			return 999
		}
		return 0
	}
	return k.CostTotalJPY / k.RevenueTotalJPY
}

// AsinSeoLaunchProgress is the per-product rollup of launch keyword statuses.
// Invariant: Achieved + GaveUp + Active == Total.
type AsinSeoLaunchProgress struct {
	ASIN            string  `json:"asin" db:"asin"`
	Total           int     `json:"total" db:"total"`
	Achieved        int     `json:"achieved" db:"achieved"`
	GaveUp          int     `json:"gave_up" db:"gave_up"`
	Active          int     `json:"active" db:"active"`
	CompletionRatio float64 `json:"completion_ratio" db:"completion_ratio"` // (achieved+gave_up)/total
	SuccessRatio    float64 `json:"success_ratio" db:"success_ratio"`       // achieved/total
}

// LossBudgetSummary tracks a product's investment loss allowance.
type LossBudgetSummary struct {
	ASIN                  string          `json:"asin" db:"asin"`
	State                 InvestmentState `json:"state" db:"state"`
	RatioRolling          float64         `json:"ratio_rolling" db:"ratio_rolling"`
	RatioStage            float64         `json:"ratio_stage" db:"ratio_stage"` // launch-cumulative vs allowance
	LaunchInvestUsage     float64         `json:"launch_invest_usage" db:"launch_invest_usage"`
	WarningThreshold      float64         `json:"warning_threshold" db:"warning_threshold"`
	CriticalThreshold     float64         `json:"critical_threshold" db:"critical_threshold"`
	MonthlyAllowanceJPY   int64           `json:"monthly_allowance_jpy" db:"monthly_allowance_jpy"`
	CumulativeLossJPY     float64         `json:"cumulative_loss_jpy" db:"cumulative_loss_jpy"`
	ConsecutiveLossMonths int             `json:"consecutive_loss_months" db:"consecutive_loss_months"`
}

// BudgetMetrics is one row of the campaign_budget_metrics view.
// LostImpressionShareBudget is nil when the platform did not report it.
type BudgetMetrics struct {
	CampaignID                string   `json:"campaign_id" db:"campaign_id"`
	CampaignName              string   `json:"campaign_name" db:"campaign_name"`
	DailyBudgetJPY            int64    `json:"daily_budget_jpy" db:"daily_budget_jpy"`
	SpendTodayJPY             float64  `json:"spend_today_jpy" db:"spend_today_jpy"`
	BudgetUsagePercent        float64  `json:"budget_usage_percent" db:"budget_usage_percent"`
	LostImpressionShareBudget *float64 `json:"lost_impression_share_budget" db:"lost_impression_share_budget"`
	SpendJPY7d                float64  `json:"spend_jpy_7d" db:"spend_jpy_7d"`
	SalesJPY7d                float64  `json:"sales_jpy_7d" db:"sales_jpy_7d"`
	Orders7d                  int64    `json:"orders_7d" db:"orders_7d"`
	Acos7d                    float64  `json:"acos_7d" db:"acos_7d"`
	Cvr7d                     float64  `json:"cvr_7d" db:"cvr_7d"`
	SpendJPY30d               float64  `json:"spend_jpy_30d" db:"spend_jpy_30d"`
	SalesJPY30d               float64  `json:"sales_jpy_30d" db:"sales_jpy_30d"`
	Orders30d                 int64    `json:"orders_30d" db:"orders_30d"`
	Acos30d                   float64  `json:"acos_30d" db:"acos_30d"`
	Cvr30d                    float64  `json:"cvr_30d" db:"cvr_30d"`
	TargetAcos                float64  `json:"target_acos" db:"target_acos"`
	LowUsageDays              int      `json:"low_usage_days" db:"low_usage_days"`
	TosPlacementPercent       float64  `json:"tos_placement_percent" db:"tos_placement_percent"`
}

// SearchTermStats is one (ASIN, search query) rollup from the search-term
// stream, input to the negative judger and the auto-exact promoter.
type SearchTermStats struct {
	ASIN           string  `json:"asin" db:"asin"`
	CampaignID     string  `json:"campaign_id" db:"campaign_id"`
	AdGroupID      string  `json:"ad_group_id" db:"ad_group_id"`
	Query          string  `json:"query" db:"query"`
	Impressions    int64   `json:"impressions" db:"impressions"`
	Clicks         int64   `json:"clicks" db:"clicks"`
	Conversions    int64   `json:"conversions" db:"conversions"`
	SpendJPY       float64 `json:"spend_jpy" db:"spend_jpy"`
	SalesJPY       float64 `json:"sales_jpy" db:"sales_jpy"`
	BaselineCvr    float64 `json:"baseline_cvr" db:"baseline_cvr"`
	TargetAcos     float64 `json:"target_acos" db:"target_acos"`
	MatchedKeyword string  `json:"matched_keyword" db:"matched_keyword"`
}
