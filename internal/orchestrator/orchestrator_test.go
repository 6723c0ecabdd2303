package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
)

type fakeSource struct {
	keywords    []domain.KeywordMetrics
	strategies  []domain.ProductStrategy
	profits     map[string][]domain.MonthlyProfit
	seoScores   []domain.SeoScore
	coreKws     map[string][]domain.CoreKeywordConfig
	summaries   map[string][]domain.KeywordRankSummary
	lossBudgets []domain.LossBudgetSummary
	budgets     []domain.BudgetMetrics
	terms       []domain.SearchTermStats
}

func (f *fakeSource) KeywordMetrics(_ context.Context, asin string) ([]domain.KeywordMetrics, error) {
	return f.keywords, nil
}
func (f *fakeSource) ProductStrategies(context.Context) ([]domain.ProductStrategy, error) {
	return f.strategies, nil
}
func (f *fakeSource) MonthlyProfits(_ context.Context, asin string) ([]domain.MonthlyProfit, error) {
	return f.profits[asin], nil
}
func (f *fakeSource) SeoScores(context.Context) ([]domain.SeoScore, error) { return f.seoScores, nil }
func (f *fakeSource) CoreKeywords(_ context.Context, asin string) ([]domain.CoreKeywordConfig, error) {
	return f.coreKws[asin], nil
}
func (f *fakeSource) RankSummaries(_ context.Context, asin string) ([]domain.KeywordRankSummary, error) {
	return f.summaries[asin], nil
}
func (f *fakeSource) LossBudgets(context.Context) ([]domain.LossBudgetSummary, error) {
	return f.lossBudgets, nil
}
func (f *fakeSource) BudgetMetrics(context.Context) ([]domain.BudgetMetrics, error) {
	return f.budgets, nil
}
func (f *fakeSource) SearchTerms(context.Context, time.Time) ([]domain.SearchTermStats, error) {
	return f.terms, nil
}
func (f *fakeSource) BacktestRecommendations(context.Context, time.Time, time.Time) ([]backtest.HistoricalRecommendation, error) {
	return nil, nil
}
func (f *fakeSource) BacktestOutcomes(context.Context, time.Time, time.Time) ([]backtest.KeywordOutcome, error) {
	return nil, nil
}

type fakeSink struct {
	bids        []domain.BidRecommendation
	budgets     []domain.BudgetRecommendation
	negatives   []domain.NegativeKeywordSuggestion
	promotions  []domain.AutoExactPromotionSuggestion
	transitions []domain.LifecycleTransitionRecord
	placements  []domain.PlacementRecommendation
	backtests   []backtest.Result
	approved    []domain.NegativeKeywordSuggestion
	appliedIDs  []string
	failedIDs   []string
	stageWrites []string
	extensions  []string
}

func (f *fakeSink) SaveBidRecommendations(_ context.Context, r []domain.BidRecommendation) error {
	f.bids = append(f.bids, r...)
	return nil
}
func (f *fakeSink) SaveBudgetRecommendations(_ context.Context, r []domain.BudgetRecommendation) error {
	f.budgets = append(f.budgets, r...)
	return nil
}
func (f *fakeSink) SaveNegativeSuggestions(_ context.Context, r []domain.NegativeKeywordSuggestion) error {
	f.negatives = append(f.negatives, r...)
	return nil
}
func (f *fakeSink) SavePromotions(_ context.Context, r []domain.AutoExactPromotionSuggestion) error {
	f.promotions = append(f.promotions, r...)
	return nil
}
func (f *fakeSink) SaveLifecycleTransitions(_ context.Context, r []domain.LifecycleTransitionRecord) error {
	f.transitions = append(f.transitions, r...)
	return nil
}
func (f *fakeSink) SavePlacementRecommendations(_ context.Context, r []domain.PlacementRecommendation) error {
	f.placements = append(f.placements, r...)
	return nil
}
func (f *fakeSink) SaveBacktestResult(_ context.Context, r backtest.Result) error {
	f.backtests = append(f.backtests, r)
	return nil
}
func (f *fakeSink) ListNegativeSuggestions(context.Context, domain.RecommendationStatus, int, int) ([]domain.NegativeKeywordSuggestion, error) {
	return f.approved, nil
}
func (f *fakeSink) ListPromotions(context.Context, domain.RecommendationStatus, int, int) ([]domain.AutoExactPromotionSuggestion, error) {
	return nil, nil
}
func (f *fakeSink) ListBacktestResults(context.Context, int, int) ([]backtest.Result, error) {
	return nil, nil
}
func (f *fakeSink) GetBacktestResult(context.Context, string) (backtest.Result, error) {
	return backtest.Result{}, nil
}
func (f *fakeSink) TransitionStatus(context.Context, string, string, domain.RecommendationStatus, domain.RecommendationStatus, string) error {
	return nil
}
func (f *fakeSink) UpdateStrategyStage(_ context.Context, asin string, from, to domain.LifecycleStage) error {
	f.stageWrites = append(f.stageWrites, fmt.Sprintf("%s:%s->%s", asin, from, to))
	return nil
}
func (f *fakeSink) IncrementInvestExtension(_ context.Context, asin string) error {
	f.extensions = append(f.extensions, asin)
	return nil
}
func (f *fakeSink) MarkApplied(_ context.Context, _, id string, applyErr error) error {
	if applyErr != nil {
		f.failedIDs = append(f.failedIDs, id)
	} else {
		f.appliedIDs = append(f.appliedIDs, id)
	}
	return nil
}

func defaultConfigs() EngineConfigs {
	return EngineConfigs{
		Bid:       bid.DefaultConfig(),
		BidMode:   domain.ModeNormal,
		Budget:    budget.DefaultConfig(),
		SeoLaunch: seolaunch.DefaultConfig(),
		Exit:      seolaunch.DefaultExitConfig(),
		Lifecycle: lifecycle.DefaultConfig(),
		Negative:  negative.DefaultConfig(),
		Promoter:  negative.DefaultPromoterConfig(),
		Discovery: negative.DefaultDiscoveryConfig(),
		Placement: budget.DefaultPlacementConfig(),
	}
}

func newTestOrchestrator(src *fakeSource, sink *fakeSink, flags Flags, rdb *redis.Client) *Orchestrator {
	applyCfg := apply.DefaultConfig()
	applyCfg.RatePerSecond = 1000
	applyCfg.Burst = 1000
	applier := apply.NewGuarded(apply.NewLogSink(zerolog.Nop()), applyCfg, nil, zerolog.Nop())
	return New(src, sink, applier, notify.NopNotifier{}, metrics.NewRegistry(), rdb, flags, defaultConfigs(), zerolog.Nop())
}

func keyword(id string) domain.KeywordMetrics {
	return domain.KeywordMetrics{
		KeywordID: id, Keyword: "water bottle", CampaignID: "C1", AdGroupID: "G1",
		ASIN: "B000TEST01", CurrentBidJPY: 100,
		Clicks30d: 50, CvrRecent: 0.06, CvrBaseline: 0.03,
		AcosActual: 0.10, AcosTarget: 0.25,
		RankCurrent: 7, RankTarget: 3,
		Phase: domain.PhaseNormal, BrandType: domain.BrandTypeGeneric, Role: domain.RoleSupport,
	}
}

func TestRunBid_DryRunSkipsPersistence(t *testing.T) {
	src := &fakeSource{keywords: []domain.KeywordMetrics{keyword("kw1")}}
	sink := &fakeSink{}
	o := newTestOrchestrator(src, sink, Flags{}, nil)

	recs, err := o.RunBid(context.Background(), Options{DryRun: true})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].DryRun)
	assert.NotEmpty(t, recs[0].ExecutionID)
	assert.Empty(t, sink.bids, "dry run persists nothing")
}

func TestRunBid_PersistsAndStamps(t *testing.T) {
	src := &fakeSource{keywords: []domain.KeywordMetrics{keyword("kw1"), keyword("kw2")}}
	sink := &fakeSink{}
	o := newTestOrchestrator(src, sink, Flags{BidExecutionMode: "SHADOW"}, nil)

	recs, err := o.RunBid(context.Background(), Options{Apply: true})
	require.NoError(t, err)
	require.Len(t, sink.bids, 2)
	assert.Equal(t, recs[0].ExecutionID, recs[1].ExecutionID, "one execution id per run")
	assert.Equal(t, domain.StatusPending, sink.bids[0].Status)
	assert.Empty(t, sink.appliedIDs, "shadow mode never applies")
}

func TestRunBid_ApplyModeStreamsNonKeep(t *testing.T) {
	src := &fakeSource{keywords: []domain.KeywordMetrics{keyword("kw1")}}
	sink := &fakeSink{}
	o := newTestOrchestrator(src, sink, Flags{BidExecutionMode: "APPLY"}, nil)

	recs, err := o.RunBid(context.Background(), Options{Apply: true})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotEqual(t, domain.ActionKeep, recs[0].Action)
	assert.Equal(t, []string{recs[0].ID}, sink.appliedIDs)
}

func TestRunBid_LockBlocksConcurrentRun(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, rdb.Set(context.Background(), "runlock:bid", "other-run", time.Minute).Err())

	src := &fakeSource{keywords: []domain.KeywordMetrics{keyword("kw1")}}
	o := newTestOrchestrator(src, &fakeSink{}, Flags{}, rdb)

	_, err := o.RunBid(context.Background(), Options{DryRun: true})
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunNegative_DropsNoneVerdicts(t *testing.T) {
	src := &fakeSource{terms: []domain.SearchTermStats{
		{ASIN: "B000TEST01", CampaignID: "C1", AdGroupID: "G1", Query: "bottle opener",
			Impressions: 3000, Clicks: 60, BaselineCvr: 0.05, TargetAcos: 0.3, SpendJPY: 4800},
		{ASIN: "B000TEST01", CampaignID: "C1", AdGroupID: "G1", Query: "water bottle",
			Impressions: 3000, Clicks: 80, Conversions: 5, BaselineCvr: 0.05, TargetAcos: 0.3,
			SpendJPY: 2000, SalesJPY: 10000},
	}}
	sink := &fakeSink{}
	o := newTestOrchestrator(src, sink, Flags{}, nil)

	recs, err := o.RunNegative(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1, "the healthy cluster is evaluated but not persisted")
	assert.Equal(t, domain.VerdictStop, recs[0].Verdict)
	assert.Len(t, sink.negatives, 1)
}

func TestRunLifecycle_ProducesOneRecordPerProduct(t *testing.T) {
	st := domain.ProductStrategy{
		ASIN: "B000TEST01", Stage: domain.StageGrow,
		SustainableTacos: 0.10, InvestTacosCap: 0.30,
		InvestMaxLossJPYMonth: 50000, InvestWindowMonths: 6,
		LaunchDate: time.Now().AddDate(0, -8, 0), MarginRate: 0.3, UnitPriceJPY: 2000,
		ReviewRating: 4.2, ReviewCount: 50,
	}
	src := &fakeSource{
		strategies: []domain.ProductStrategy{st},
		profits: map[string][]domain.MonthlyProfit{
			"B000TEST01": {{ASIN: "B000TEST01", NetProfitJPY: 30000, NetProfitCumJPY: 100000,
				Tacos: 0.08, MonthsSinceLaunch: 8, RevenueJPY: 300000}},
		},
		seoScores: []domain.SeoScore{{ASIN: "B000TEST01", Overall: 80,
			Trend: domain.TrendUp, Zone: domain.ZoneTop}},
	}
	sink := &fakeSink{}
	o := newTestOrchestrator(src, sink, Flags{}, nil)

	recs, err := o.RunLifecycle(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.StageGrow, recs[0].FromStage)
	assert.Equal(t, domain.StageHarvest, recs[0].ToStage, "established product graduates")
	assert.Len(t, sink.transitions, 1)
}

func TestRunLifecycle_ApplyWritesStageBack(t *testing.T) {
	st := domain.ProductStrategy{
		ASIN: "B000TEST01", Stage: domain.StageGrow,
		SustainableTacos: 0.10, InvestTacosCap: 0.30,
		InvestMaxLossJPYMonth: 50000, InvestWindowMonths: 6,
		LaunchDate: time.Now().AddDate(0, -8, 0), MarginRate: 0.3, UnitPriceJPY: 2000,
		ReviewRating: 4.2, ReviewCount: 50,
	}
	src := &fakeSource{
		strategies: []domain.ProductStrategy{st},
		profits: map[string][]domain.MonthlyProfit{
			"B000TEST01": {{ASIN: "B000TEST01", NetProfitJPY: 30000, NetProfitCumJPY: 100000,
				Tacos: 0.08, MonthsSinceLaunch: 8, RevenueJPY: 300000}},
		},
		seoScores: []domain.SeoScore{{ASIN: "B000TEST01", Overall: 80,
			Trend: domain.TrendUp, Zone: domain.ZoneTop}},
	}
	sink := &fakeSink{}
	o := newTestOrchestrator(src, sink, Flags{}, nil)

	_, err := o.RunLifecycle(context.Background(), Options{})
	require.NoError(t, err)
	assert.Empty(t, sink.stageWrites, "without apply the decision is persisted only")

	_, err = o.RunLifecycle(context.Background(), Options{Apply: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"B000TEST01:GROW->HARVEST"}, sink.stageWrites)
}

func TestRunLifecycle_ApplyIncrementsGrantedExtension(t *testing.T) {
	// Soft launch at the window edge with flat SEO, tolerable loss and TACOS
	// in band: no stage move, but the window extension is granted.
	st := domain.ProductStrategy{
		ASIN: "B000TEST01", Stage: domain.StageLaunchSoft,
		SustainableTacos: 0.10, InvestTacosCap: 0.30,
		InvestMaxLossJPYMonth: 50000, InvestWindowMonths: 6,
		LaunchDate: time.Now().AddDate(0, -6, 0), MarginRate: 0.3, UnitPriceJPY: 2000,
		ReviewRating: 4.2, ReviewCount: 50,
	}
	src := &fakeSource{
		strategies: []domain.ProductStrategy{st},
		profits: map[string][]domain.MonthlyProfit{
			"B000TEST01": {{ASIN: "B000TEST01", NetProfitJPY: -20000, NetProfitCumJPY: -100000,
				Tacos: 0.25, MonthsSinceLaunch: 6, RevenueJPY: 150000}},
		},
		seoScores: []domain.SeoScore{{ASIN: "B000TEST01", Overall: 55, Trend: domain.TrendFlat}},
	}
	sink := &fakeSink{}
	o := newTestOrchestrator(src, sink, Flags{}, nil)

	recs, err := o.RunLifecycle(context.Background(), Options{Apply: true})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].ShouldTransition)
	assert.True(t, recs[0].ExtensionGranted)
	assert.Empty(t, sink.stageWrites)
	assert.Equal(t, []string{"B000TEST01"}, sink.extensions)
}

func TestRun_EmptySourceWarnsAndCompletes(t *testing.T) {
	var buf bytes.Buffer
	sink := &fakeSink{}
	applier := apply.NewGuarded(apply.NewLogSink(zerolog.Nop()), apply.DefaultConfig(), nil, zerolog.Nop())
	o := New(&fakeSource{}, sink, applier, notify.NopNotifier{}, metrics.NewRegistry(),
		nil, Flags{}, defaultConfigs(), zerolog.New(&buf))

	recs, err := o.RunNegative(context.Background(), Options{})
	require.NoError(t, err, "an empty window is not a failure")
	assert.Empty(t, recs)
	assert.Empty(t, sink.negatives)
	assert.Contains(t, buf.String(), "insufficient data")
	assert.Contains(t, buf.String(), "search_term_stats")
}

func TestRunPlacement_PersistsAdjustments(t *testing.T) {
	src := &fakeSource{budgets: []domain.BudgetMetrics{{
		CampaignID: "C1", TargetAcos: 0.25, Acos30d: 0.15,
		Orders30d: 20, TosPlacementPercent: 30,
	}}}
	sink := &fakeSink{}
	o := newTestOrchestrator(src, sink, Flags{}, nil)

	recs, err := o.RunPlacement(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "RAISE", recs[0].Action)
	assert.NotEmpty(t, recs[0].ExecutionID)
	assert.Len(t, sink.placements, 1)
}

func TestRunKeywordDiscovery_ReportsWithoutPersisting(t *testing.T) {
	src := &fakeSource{terms: []domain.SearchTermStats{{
		ASIN: "B000TEST01", CampaignID: "C1", AdGroupID: "G1", Query: "steel bottle",
		Clicks: 20, Conversions: 1, SpendJPY: 1000, SalesJPY: 4000,
		BaselineCvr: 0.03, TargetAcos: 0.3, MatchedKeyword: "water bottle",
	}}}
	sink := &fakeSink{}
	o := newTestOrchestrator(src, sink, Flags{}, nil)

	recs, err := o.RunKeywordDiscovery(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1, "one conversion clears the relaxed bar")
	assert.Empty(t, sink.promotions, "discovery is report-only")
}

func TestApplyQueuedNegatives_RespectsFlag(t *testing.T) {
	sink := &fakeSink{approved: []domain.NegativeKeywordSuggestion{{
		Query: "bottle opener", MatchType: "NEGATIVE_EXACT", CampaignID: "C1", AdGroupID: "G1",
	}}}
	sink.approved[0].ID = "n1"

	o := newTestOrchestrator(&fakeSource{}, sink, Flags{}, nil)
	applied, failed, err := o.ApplyQueuedNegatives(context.Background())
	require.NoError(t, err)
	assert.Zero(t, applied+failed, "disabled flag skips the queue")

	o = newTestOrchestrator(&fakeSource{}, sink, Flags{NegativeApplyEnabled: true}, nil)
	applied, failed, err = o.ApplyQueuedNegatives(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Zero(t, failed)
	assert.Equal(t, []string{"n1"}, sink.appliedIDs)
}
