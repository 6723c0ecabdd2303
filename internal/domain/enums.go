package domain

// Action is the per-keyword bid action emitted by the bid engine.
type Action string

const (
	ActionStrongUp   Action = "STRONG_UP"
	ActionMildUp     Action = "MILD_UP"
	ActionKeep       Action = "KEEP"
	ActionMildDown   Action = "MILD_DOWN"
	ActionStrongDown Action = "STRONG_DOWN"
	ActionStop       Action = "STOP"
)

// IsUp reports whether the action raises the bid.
func (a Action) IsUp() bool {
	return a == ActionStrongUp || a == ActionMildUp
}

// IsDown reports whether the action lowers the bid (STOP included).
func (a Action) IsDown() bool {
	return a == ActionMildDown || a == ActionStrongDown || a == ActionStop
}

// Milder returns the next milder action on the DOWN fallback chain
// (STOP → STRONG_DOWN → MILD_DOWN → KEEP). UP actions fall back to KEEP.
func (a Action) Milder() Action {
	switch a {
	case ActionStop:
		return ActionStrongDown
	case ActionStrongDown:
		return ActionMildDown
	case ActionMildDown:
		return ActionKeep
	default:
		return ActionKeep
	}
}

// Phase tags a keyword with its sale-event phase.
type Phase string

const (
	PhaseNormal  Phase = "NORMAL"
	PhaseSPre1   Phase = "S_PRE1"
	PhaseSPre2   Phase = "S_PRE2"
	PhaseSFreeze Phase = "S_FREEZE"
	PhaseSNormal Phase = "S_NORMAL"
	PhaseSFinal  Phase = "S_FINAL"
	PhaseSRevert Phase = "S_REVERT"
)

// IsPresale reports whether the phase is a pre-sale ramp period.
func (p Phase) IsPresale() bool {
	return p == PhaseSPre1 || p == PhaseSPre2
}

// IsSaleEvent reports whether the phase belongs to an S-mode sale event.
func (p Phase) IsSaleEvent() bool {
	return p != PhaseNormal && p != ""
}

// EngineMode selects bid-engine aggressiveness.
type EngineMode string

const (
	ModeNormal EngineMode = "NORMAL"
	ModeSMode  EngineMode = "S_MODE"
)

// BrandType classifies a keyword's brand relation.
type BrandType string

const (
	BrandTypeBrand    BrandType = "BRAND"
	BrandTypeGeneric  BrandType = "GENERIC"
	BrandTypeConquest BrandType = "CONQUEST"
)

// KeywordRole is the strategic role assigned to a keyword.
type KeywordRole string

const (
	RoleCore          KeywordRole = "CORE"
	RoleSupport       KeywordRole = "SUPPORT"
	RoleExperiment    KeywordRole = "EXPERIMENT"
	RoleBrandOwn      KeywordRole = "BRAND_OWN"
	RoleBrandConquest KeywordRole = "BRAND_CONQUEST"
)

// LifecycleStage is the product lifecycle state.
type LifecycleStage string

const (
	StageLaunchHard LifecycleStage = "LAUNCH_HARD"
	StageLaunchSoft LifecycleStage = "LAUNCH_SOFT"
	StageGrow       LifecycleStage = "GROW"
	StageHarvest    LifecycleStage = "HARVEST"
)

// IsLaunch reports whether the stage is an investment (launch) stage.
func (s LifecycleStage) IsLaunch() bool {
	return s == StageLaunchHard || s == StageLaunchSoft
}

// Valid reports whether s is a member of the closed stage set.
func (s LifecycleStage) Valid() bool {
	switch s {
	case StageLaunchHard, StageLaunchSoft, StageGrow, StageHarvest:
		return true
	}
	return false
}

// SeoTrend is the month-over-month direction of the SEO score.
type SeoTrend string

const (
	TrendUp      SeoTrend = "UP"
	TrendFlat    SeoTrend = "FLAT"
	TrendDown    SeoTrend = "DOWN"
	TrendUnknown SeoTrend = "UNKNOWN"
)

// RankZone buckets the organic rank position.
type RankZone string

const (
	ZoneTop        RankZone = "TOP_ZONE"
	ZoneMid        RankZone = "MID_ZONE"
	ZoneOutOfRange RankZone = "OUT_OF_RANGE"
	ZoneUnknown    RankZone = "UNKNOWN"
)

// KeywordTier sizes a core keyword by market weight.
type KeywordTier string

const (
	TierBig    KeywordTier = "BIG"
	TierMiddle KeywordTier = "MIDDLE"
	TierBrand  KeywordTier = "BRAND"
)

// VolumeBucket categorizes a core keyword's search volume relative to the
// product's median core-keyword volume.
type VolumeBucket string

const (
	VolumeHigh VolumeBucket = "HIGH"
	VolumeMid  VolumeBucket = "MID"
	VolumeLow  VolumeBucket = "LOW"
)

// LaunchKeywordStatus is the per-keyword SEO launch verdict.
type LaunchKeywordStatus string

const (
	LaunchAchieved LaunchKeywordStatus = "ACHIEVED"
	LaunchGaveUp   LaunchKeywordStatus = "GAVE_UP"
	LaunchActive   LaunchKeywordStatus = "ACTIVE"
)

// InvestmentState is the loss-budget zone for a product.
type InvestmentState string

const (
	InvestSafe    InvestmentState = "SAFE"
	InvestWarning InvestmentState = "WARNING"
	InvestLimit   InvestmentState = "LIMIT"
	InvestBreach  InvestmentState = "BREACH"
)

// RecommendationStatus is the review state of a persisted recommendation.
type RecommendationStatus string

const (
	StatusPending  RecommendationStatus = "PENDING"
	StatusApproved RecommendationStatus = "APPROVED"
	StatusRejected RecommendationStatus = "REJECTED"
	StatusApplied  RecommendationStatus = "APPLIED"
)

// BudgetAction is the per-campaign budget decision.
type BudgetAction string

const (
	BudgetBoost BudgetAction = "BOOST"
	BudgetKeep  BudgetAction = "KEEP"
	BudgetCurb  BudgetAction = "CURB"
)

// BudgetReason is the closed reason set for budget decisions.
type BudgetReason string

const (
	BudgetReasonInsufficientData    BudgetReason = "INSUFFICIENT_DATA"
	BudgetReasonHighPerfLostIS      BudgetReason = "HIGH_PERFORMANCE_LOST_IS"
	BudgetReasonHighPerfUsage       BudgetReason = "HIGH_PERFORMANCE_USAGE"
	BudgetReasonMaxBudgetReached    BudgetReason = "MAX_BUDGET_REACHED"
	BudgetReasonLowUsageHighAcos    BudgetReason = "LOW_USAGE_HIGH_ACOS"
	BudgetReasonMinBudgetReached    BudgetReason = "MIN_BUDGET_REACHED"
	BudgetReasonModeratePerformance BudgetReason = "MODERATE_PERFORMANCE"
	BudgetReasonBudgetAvailable     BudgetReason = "BUDGET_AVAILABLE"
)

// BidReason is the closed reason set for bid decisions.
type BidReason string

const (
	BidReasonAcosUnderTarget    BidReason = "ACOS_UNDER_TARGET"
	BidReasonAcosNearTarget     BidReason = "ACOS_NEAR_TARGET"
	BidReasonAcosOverTarget     BidReason = "ACOS_OVER_TARGET"
	BidReasonAcosFarOverTarget  BidReason = "ACOS_FAR_OVER_TARGET"
	BidReasonInsufficientClicks BidReason = "INSUFFICIENT_CLICKS"
	BidReasonFreezePhase        BidReason = "FREEZE_PHASE"
	BidReasonBrandProtected     BidReason = "BRAND_PROTECTED"
	BidReasonGuardrailFallback  BidReason = "GUARDRAIL_FALLBACK"
	BidReasonError              BidReason = "ERROR"
)

// NegativeVerdict is the cluster-level outcome of the negative judger.
type NegativeVerdict string

const (
	VerdictNone         NegativeVerdict = "NONE"
	VerdictDown         NegativeVerdict = "DOWN"
	VerdictStop         NegativeVerdict = "STOP"
	VerdictManualReview NegativeVerdict = "MANUAL_REVIEW"
)

// ClusterPhase gates the negative judger by accumulated clicks.
type ClusterPhase string

const (
	PhaseLearning      ClusterPhase = "LEARNING"
	PhaseLimitedAction ClusterPhase = "LIMITED_ACTION"
	PhaseStopCandidate ClusterPhase = "STOP_CANDIDATE"
)

// NegativeReason is the closed reason set for negative-keyword decisions.
type NegativeReason string

const (
	NegReasonLearningPhase  NegativeReason = "LEARNING_PHASE"
	NegReasonLimitedAction  NegativeReason = "LIMITED_ACTION_PHASE"
	NegReasonLongTailGuard  NegativeReason = "LONG_TAIL_GUARD"
	NegReasonRuleOfThree    NegativeReason = "RULE_OF_THREE_ZERO_CVR"
	NegReasonLowCvr         NegativeReason = "LOW_CVR"
	NegReasonHighAcos       NegativeReason = "HIGH_ACOS"
	NegReasonWhitelisted    NegativeReason = "WHITELISTED"
	NegReasonWithinTargets  NegativeReason = "WITHIN_TARGETS"
	NegReasonInsufficientKw NegativeReason = "INSUFFICIENT_KEYWORD_DATA"
)

// IntentTag labels a search query's inferred intent. The layered scan
// resolves ties by priority: child > adult > concern > info > generic.
type IntentTag string

const (
	IntentChild   IntentTag = "child"
	IntentAdult   IntentTag = "adult"
	IntentConcern IntentTag = "concern"
	IntentInfo    IntentTag = "info"
	IntentGeneric IntentTag = "generic"
)

// Granularity selects backtest aggregation.
type Granularity string

const (
	GranularityDaily  Granularity = "DAILY"
	GranularityWeekly Granularity = "WEEKLY"
)
