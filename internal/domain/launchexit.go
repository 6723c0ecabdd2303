package domain

// LaunchExitKind distinguishes how a launch stage was exited.
type LaunchExitKind string

const (
	ExitContinue  LaunchExitKind = "CONTINUE"
	ExitNormal    LaunchExitKind = "NORMAL"
	ExitEarly     LaunchExitKind = "EARLY"
	ExitEmergency LaunchExitKind = "EMERGENCY"
)

// LaunchExitReasonCode is the closed reason set for launch-exit decisions.
type LaunchExitReasonCode string

const (
	ExitReasonLossBudgetBreach    LaunchExitReasonCode = "LOSS_BUDGET_BREACH"
	ExitReasonLossRatioEmergency  LaunchExitReasonCode = "LOSS_RATIO_EMERGENCY"
	ExitReasonInvestWindowCritical LaunchExitReasonCode = "INVEST_WINDOW_CRITICAL"
	ExitReasonSeoCompleted        LaunchExitReasonCode = "SEO_COMPLETED"
	ExitReasonEarlyWarningPartial LaunchExitReasonCode = "EARLY_WARNING_PARTIAL"
	ExitReasonInProgress          LaunchExitReasonCode = "IN_PROGRESS"
	// LOSS_BUDGET_OK marks a CONTINUE verdict reached with a SAFE loss budget.
	ExitReasonLossBudgetOK LaunchExitReasonCode = "LOSS_BUDGET_OK"
)

// EffectiveExitThresholds records the thresholds the decider actually used
// after per-ASIN volume scaling, for audit.
type EffectiveExitThresholds struct {
	VolumeScale        float64 `json:"volume_scale"`
	MinLaunchDays      int     `json:"min_launch_days"`
	MinAsinClicksTotal int64   `json:"min_asin_clicks_total"`
	MinAsinOrdersTotal int64   `json:"min_asin_orders_total"`
	MinCompletionRatio float64 `json:"min_completion_ratio"`
}

// LaunchExitDecision is produced by the SEO launch evaluator's exit decider
// and consumed by the lifecycle state machine. It lives here so neither
// package imports the other.
type LaunchExitDecision struct {
	ASIN            string                  `json:"asin"`
	Kind            LaunchExitKind          `json:"kind"`
	ShouldExit      bool                    `json:"should_exit"`
	IsEmergency     bool                    `json:"is_emergency"`
	TargetStage     LifecycleStage          `json:"target_stage"`
	ReasonCode      LaunchExitReasonCode    `json:"reason_code"`
	ReasonDetail    string                  `json:"reason_detail"`
	CompletionRatio float64                 `json:"completion_ratio"`
	Thresholds      EffectiveExitThresholds `json:"thresholds"`
}
