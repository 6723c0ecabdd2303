package domain

import "time"

// RecordMeta is carried by every persisted recommendation record. Records are
// append-only; Status and the apply/approval fields are the only mutable
// columns and move through conditional writes.
type RecordMeta struct {
	ID          string               `json:"id" db:"id"`
	ExecutionID string               `json:"execution_id" db:"execution_id"`
	Status      RecommendationStatus `json:"status" db:"status"`
	DryRun      bool                 `json:"dry_run" db:"dry_run"`
	CreatedAt   time.Time            `json:"created_at" db:"created_at"`
	ApprovedAt  *time.Time           `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy  *string              `json:"approved_by,omitempty" db:"approved_by"`
	RejectedAt  *time.Time           `json:"rejected_at,omitempty" db:"rejected_at"`
	RejectedBy  *string              `json:"rejected_by,omitempty" db:"rejected_by"`
	IsApplied   bool                 `json:"is_applied" db:"is_applied"`
	AppliedAt   *time.Time           `json:"applied_at,omitempty" db:"applied_at"`
	ApplyError  *string              `json:"apply_error,omitempty" db:"apply_error"`
}

// ReasonTriple explains a decision: the observed facts, the rule that fired,
// and the expected impact.
type ReasonTriple struct {
	Facts  string `json:"facts" db:"reason_facts"`
	Logic  string `json:"logic" db:"reason_logic"`
	Impact string `json:"impact" db:"reason_impact"`
}

// BidRecommendation is one bid-engine output row.
type BidRecommendation struct {
	RecordMeta
	KeywordID     string       `json:"keyword_id" db:"keyword_id"`
	Keyword       string       `json:"keyword" db:"keyword"`
	CampaignID    string       `json:"campaign_id" db:"campaign_id"`
	AdGroupID     string       `json:"ad_group_id" db:"ad_group_id"`
	ASIN          string       `json:"asin" db:"asin"`
	Role          KeywordRole  `json:"role" db:"role"`
	Stage         LifecycleStage `json:"stage" db:"stage"`
	Action        Action       `json:"action" db:"action"`
	ReasonCode    BidReason    `json:"reason_code" db:"reason_code"`
	Reason        ReasonTriple `json:"reason" db:"-"`
	ReasonDetail  string       `json:"reason_detail" db:"reason_detail"`
	CurrentBidJPY int64        `json:"current_bid_jpy" db:"current_bid_jpy"`
	NewBidJPY     int64        `json:"new_bid_jpy" db:"new_bid_jpy"`
	ChangeRate    float64      `json:"change_rate" db:"change_rate"`
	Coefficients  Coefficients `json:"coefficients" db:"-"`
	Clipped       bool         `json:"clipped" db:"clipped"`
	ClipReason    string       `json:"clip_reason,omitempty" db:"clip_reason"`
	GuardrailHit  bool         `json:"guardrail_hit" db:"guardrail_hit"`
}

// Coefficients are the seven multiplicative knobs of the bid engine, each
// centered at 1.0.
type Coefficients struct {
	Phase      float64 `json:"phase"`
	Cvr        float64 `json:"cvr"`
	RankGap    float64 `json:"rank_gap"`
	Competitor float64 `json:"competitor"`
	Brand      float64 `json:"brand"`
	Stats      float64 `json:"stats"`
	Tos        float64 `json:"tos"`
}

// Product multiplies all seven coefficients.
func (c Coefficients) Product() float64 {
	return c.Phase * c.Cvr * c.RankGap * c.Competitor * c.Brand * c.Stats * c.Tos
}

// Neutral returns all-ones coefficients.
func NeutralCoefficients() Coefficients {
	return Coefficients{Phase: 1, Cvr: 1, RankGap: 1, Competitor: 1, Brand: 1, Stats: 1, Tos: 1}
}

// BudgetRecommendation is one budget-engine output row.
type BudgetRecommendation struct {
	RecordMeta
	CampaignID       string       `json:"campaign_id" db:"campaign_id"`
	CampaignName     string       `json:"campaign_name" db:"campaign_name"`
	Action           BudgetAction `json:"action" db:"action"`
	ReasonCode       BudgetReason `json:"reason_code" db:"reason_code"`
	ReasonDetail     string       `json:"reason_detail" db:"reason_detail"`
	CurrentBudgetJPY int64        `json:"current_budget_jpy" db:"current_budget_jpy"`
	NewBudgetJPY     int64        `json:"new_budget_jpy" db:"new_budget_jpy"`
	Clipped          bool         `json:"clipped" db:"clipped"`
	ClipReason       string       `json:"clip_reason,omitempty" db:"clip_reason"`
}

// NegativeKeywordSuggestion proposes adding a negative expression.
type NegativeKeywordSuggestion struct {
	RecordMeta
	ASIN         string          `json:"asin" db:"asin"`
	CampaignID   string          `json:"campaign_id" db:"campaign_id"`
	AdGroupID    string          `json:"ad_group_id" db:"ad_group_id"`
	Query        string          `json:"query" db:"query"`
	ClusterKey   string          `json:"cluster_key" db:"cluster_key"`
	Intent       IntentTag       `json:"intent" db:"intent"`
	Phase        ClusterPhase    `json:"phase" db:"phase"`
	Verdict      NegativeVerdict `json:"verdict" db:"verdict"`
	ReasonCode   NegativeReason  `json:"reason_code" db:"reason_code"`
	ReasonDetail string          `json:"reason_detail" db:"reason_detail"`
	MatchType    string          `json:"match_type" db:"match_type"` // NEGATIVE_EXACT | NEGATIVE_PHRASE
	Clicks       int64           `json:"clicks" db:"clicks"`
	Conversions  int64           `json:"conversions" db:"conversions"`
	SpendJPY     float64         `json:"spend_jpy" db:"spend_jpy"`
}

// AutoExactPromotionSuggestion proposes promoting a converting search term
// to an exact-match keyword.
type AutoExactPromotionSuggestion struct {
	RecordMeta
	ASIN            string  `json:"asin" db:"asin"`
	CampaignID      string  `json:"campaign_id" db:"campaign_id"`
	AdGroupID       string  `json:"ad_group_id" db:"ad_group_id"`
	Query           string  `json:"query" db:"query"`
	ReasonCode      string  `json:"reason_code" db:"reason_code"`
	ReasonDetail    string  `json:"reason_detail" db:"reason_detail"`
	Conversions     int64   `json:"conversions" db:"conversions"`
	Cvr             float64 `json:"cvr" db:"cvr"`
	Acos            float64 `json:"acos" db:"acos"`
	SuggestedBidJPY int64   `json:"suggested_bid_jpy" db:"suggested_bid_jpy"`
}

// Closed reason set for auto-exact promotions.
const (
	PromoReasonProvenConverter = "PROVEN_CONVERTER"
	PromoReasonEfficientSpend  = "EFFICIENT_SPEND"
)

// LifecycleTransitionRecord is one lifecycle-engine output row.
type LifecycleTransitionRecord struct {
	RecordMeta
	ASIN             string         `json:"asin" db:"asin"`
	FromStage        LifecycleStage `json:"from_stage" db:"from_stage"`
	ToStage          LifecycleStage `json:"to_stage" db:"to_stage"`
	ShouldTransition bool           `json:"should_transition" db:"should_transition"`
	Reason           string         `json:"reason" db:"reason"`
	ForceHarvest     bool           `json:"force_harvest" db:"force_harvest"`
	IsEmergencyExit  bool           `json:"is_emergency_exit" db:"is_emergency_exit"`
	ExtensionGranted bool           `json:"extension_granted" db:"extension_granted"`
	Warnings         []string       `json:"warnings" db:"-"`
}

// PlacementRecommendation adjusts the top-of-search placement modifier.
type PlacementRecommendation struct {
	RecordMeta
	CampaignID     string  `json:"campaign_id" db:"campaign_id"`
	Action         string  `json:"action" db:"action"` // RAISE | KEEP | LOWER
	ReasonDetail   string  `json:"reason_detail" db:"reason_detail"`
	CurrentPercent float64 `json:"current_percent" db:"current_percent"`
	NewPercent     float64 `json:"new_percent" db:"new_percent"`
}
