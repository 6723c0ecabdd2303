// Package orchestrator coordinates the periodic pull-and-decide cycle: load
// a warehouse snapshot, hand it to the engines, stamp and persist the
// decisions, optionally stream them to the apply sink, and notify. Engines
// stay pure; every side effect lives here.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/harunaga/adpilot/internal/apperr"
	"github.com/harunaga/adpilot/internal/apply"
	"github.com/harunaga/adpilot/internal/backtest"
	"github.com/harunaga/adpilot/internal/domain"
	"github.com/harunaga/adpilot/internal/engine/bid"
	"github.com/harunaga/adpilot/internal/engine/budget"
	"github.com/harunaga/adpilot/internal/engine/lifecycle"
	"github.com/harunaga/adpilot/internal/engine/negative"
	"github.com/harunaga/adpilot/internal/engine/seolaunch"
	"github.com/harunaga/adpilot/internal/metrics"
	"github.com/harunaga/adpilot/internal/notify"
	"github.com/harunaga/adpilot/internal/warehouse"
)

// Flags are the env-driven apply gates. Persisting recommendations is always
// on; writing to the ad platform needs both the per-run apply option and the
// matching flag.
type Flags struct {
	BidExecutionMode      string // "SHADOW" | "APPLY", env BID_ENGINE_EXECUTION_MODE
	BudgetExecutionMode   string // same shape, env BUDGET_ENGINE_EXECUTION_MODE
	NegativeApplyEnabled  bool   // env NEGATIVE_APPLY_ENABLED
	AutoExactApplyEnabled bool   // env AUTO_EXACT_APPLY_ENABLED
}

// EngineConfigs bundles every engine's calibration.
type EngineConfigs struct {
	Bid       bid.Config
	BidMode   domain.EngineMode
	Budget    budget.Config
	Placement budget.PlacementConfig
	SeoLaunch seolaunch.Config
	Exit      seolaunch.ExitConfig
	Lifecycle lifecycle.Config
	Negative  negative.Config
	Promoter  negative.PromoterConfig
	Discovery negative.PromoterConfig
	Whitelist negative.WhitelistConfig
}

// Options shape one run.
type Options struct {
	DryRun bool // evaluate only: nothing persisted, nothing applied
	Apply  bool // stream to the apply sink, still gated by Flags
	ASIN   string
	Mode   domain.EngineMode // bid runs only; empty means the configured default
}

// Orchestrator wires the engines to the warehouse, apply sink and notifier.
type Orchestrator struct {
	src      warehouse.Source
	sink     warehouse.Sink
	applier  *apply.Guarded
	notifier notify.Notifier
	metrics  *metrics.Registry
	lock     *runLock
	flags    Flags
	cfgs     EngineConfigs
	log      zerolog.Logger
}

// New builds an orchestrator. rdb may be nil (no cross-process run locks).
func New(
	src warehouse.Source,
	sink warehouse.Sink,
	applier *apply.Guarded,
	notifier notify.Notifier,
	reg *metrics.Registry,
	rdb *redis.Client,
	flags Flags,
	cfgs EngineConfigs,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		src:      src,
		sink:     sink,
		applier:  applier,
		notifier: notifier,
		metrics:  reg,
		lock:     &runLock{rdb: rdb, ttl: 30 * time.Minute},
		flags:    flags,
		cfgs:     cfgs,
		log:      log,
	}
}

// stamp fills the RecordMeta common to every persisted record.
func stamp(meta *domain.RecordMeta, executionID string, dryRun bool, now time.Time) {
	meta.ID = uuid.NewString()
	meta.ExecutionID = executionID
	meta.Status = domain.StatusPending
	meta.DryRun = dryRun
	meta.CreatedAt = now
}

// warnInsufficient flags an empty input set or an empty key join. The run
// still completes, with whatever the remaining inputs yield.
func (o *Orchestrator) warnInsufficient(engine, input string) {
	o.log.Warn().Err(apperr.ErrInsufficientData).
		Str("engine", engine).Str("input", input).
		Msg("insufficient input data")
}

// begin assigns the execution id and takes the run lock.
func (o *Orchestrator) begin(ctx context.Context, engine string) (string, func(), error) {
	executionID := uuid.NewString()
	release, err := o.lock.acquire(ctx, engine, executionID)
	if err != nil {
		return "", nil, err
	}
	o.metrics.ActiveRuns.Inc()
	o.log.Info().Str("engine", engine).Str("execution_id", executionID).Msg("run started")
	return executionID, func() {
		o.metrics.ActiveRuns.Dec()
		release()
	}, nil
}

// finish emits metrics and the notification summary.
func (o *Orchestrator) finish(ctx context.Context, engine, executionID string, started time.Time, opts Options, applied bool, records int, actionCounts map[string]int, applyErrors int, runErr error) {
	o.metrics.ObserveRun(engine, started, records, runErr)
	if runErr != nil {
		o.metrics.RunErrors.WithLabelValues(engine, errorKind(runErr)).Inc()
		o.log.Error().Err(runErr).Str("engine", engine).Str("execution_id", executionID).Msg("run failed")
		return
	}
	if opts.DryRun {
		return
	}
	summary := notify.RunSummary{
		Engine:       engine,
		ExecutionID:  executionID,
		DryRun:       opts.DryRun,
		Applied:      applied,
		RecordCount:  records,
		ActionCounts: actionCounts,
		ApplyErrors:  applyErrors,
		DurationMs:   time.Since(started).Milliseconds(),
	}
	if err := o.notifier.NotifyRun(ctx, summary); err != nil {
		o.log.Warn().Err(err).Str("engine", engine).Msg("notification failed")
	}
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case err == ErrRunInProgress:
		return "locked"
	default:
		return "internal"
	}
}

// RunBacktest loads historical rows for the range and replays them. Results
// persist unless dryRun.
func (o *Orchestrator) RunBacktest(ctx context.Context, p backtest.Params, dryRun bool) (backtest.Result, error) {
	recs, err := o.src.BacktestRecommendations(ctx, p.From, p.To)
	if err != nil {
		return backtest.Result{}, err
	}
	outcomes, err := o.src.BacktestOutcomes(ctx, p.From, p.To)
	if err != nil {
		return backtest.Result{}, err
	}
	if len(recs) == 0 || len(outcomes) == 0 {
		o.warnInsufficient("backtest", "bid_recommendations x keyword_daily_outcomes")
	}

	res := backtest.NewRunner(o.log).Run(p, recs, outcomes)
	if dryRun {
		return res, nil
	}
	if err := o.sink.SaveBacktestResult(ctx, res); err != nil {
		return backtest.Result{}, err
	}
	return res, nil
}
