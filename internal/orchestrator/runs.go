package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harunaga/adpilot/internal/domain"
	"github.com/harunaga/adpilot/internal/engine/bid"
	"github.com/harunaga/adpilot/internal/engine/budget"
	"github.com/harunaga/adpilot/internal/engine/lifecycle"
	"github.com/harunaga/adpilot/internal/engine/negative"
	"github.com/harunaga/adpilot/internal/engine/seolaunch"
	"github.com/harunaga/adpilot/internal/warehouse"
)

// searchTermWindow is how far back the negative judger and the promoter
// look for search-term rollups.
const searchTermWindow = 60 * 24 * time.Hour

// RunBid executes the bid engine over the current keyword snapshot.
func (o *Orchestrator) RunBid(ctx context.Context, opts Options) ([]domain.BidRecommendation, error) {
	started := time.Now()
	executionID, done, err := o.begin(ctx, "bid")
	if err != nil {
		return nil, err
	}
	defer done()

	var (
		keywords    []domain.KeywordMetrics
		strategies  []domain.ProductStrategy
		lossBudgets []domain.LossBudgetSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { keywords, err = o.src.KeywordMetrics(gctx, opts.ASIN); return })
	g.Go(func() (err error) { strategies, err = o.src.ProductStrategies(gctx); return })
	g.Go(func() (err error) { lossBudgets, err = o.src.LossBudgets(gctx); return })
	if err := g.Wait(); err != nil {
		o.finish(ctx, "bid", executionID, started, opts, false, 0, nil, 0, err)
		return nil, err
	}

	if len(keywords) == 0 {
		o.warnInsufficient("bid", "keyword_metrics_60d")
		o.finish(ctx, "bid", executionID, started, opts, false, 0, nil, 0, nil)
		return nil, nil
	}
	if len(strategies) == 0 {
		o.warnInsufficient("bid", "product_strategy")
	}

	in := bid.BatchInput{
		Keywords:    keywords,
		Strategies:  make(map[string]domain.ProductStrategy, len(strategies)),
		LossBudgets: make(map[string]domain.LossBudgetSummary, len(lossBudgets)),
	}
	for _, s := range strategies {
		in.Strategies[s.ASIN] = s
	}
	for _, lb := range lossBudgets {
		in.LossBudgets[lb.ASIN] = lb
	}

	mode := o.cfgs.BidMode
	if opts.Mode != "" {
		mode = opts.Mode
	}
	recs := bid.NewEngine(o.cfgs.Bid, mode).Run(in)
	now := time.Now().UTC()
	counts := make(map[string]int)
	for i := range recs {
		stamp(&recs[i].RecordMeta, executionID, opts.DryRun, now)
		counts[string(recs[i].Action)]++
		o.metrics.Decisions.WithLabelValues("bid", string(recs[i].Action)).Inc()
	}

	if opts.DryRun {
		o.finish(ctx, "bid", executionID, started, opts, false, len(recs), counts, 0, nil)
		return recs, nil
	}
	if err := o.sink.SaveBidRecommendations(ctx, recs); err != nil {
		o.finish(ctx, "bid", executionID, started, opts, false, len(recs), counts, 0, err)
		return nil, err
	}

	applied, applyErrors := false, 0
	if opts.Apply && o.flags.BidExecutionMode == "APPLY" {
		applied = true
		for i := range recs {
			if recs[i].Action == domain.ActionKeep {
				continue
			}
			err := o.applier.SetBid(ctx, executionID, recs[i].KeywordID, recs[i].NewBidJPY)
			if err != nil {
				applyErrors++
			}
			if mErr := o.sink.MarkApplied(ctx, warehouse.TableBidRecommendations, recs[i].ID, err); mErr != nil {
				o.log.Warn().Err(mErr).Str("id", recs[i].ID).Msg("apply bookkeeping failed")
			}
		}
	}

	o.finish(ctx, "bid", executionID, started, opts, applied, len(recs), counts, applyErrors, nil)
	return recs, nil
}

// RunBudget executes the budget engine over the campaign snapshot.
func (o *Orchestrator) RunBudget(ctx context.Context, opts Options) ([]domain.BudgetRecommendation, error) {
	started := time.Now()
	executionID, done, err := o.begin(ctx, "budget")
	if err != nil {
		return nil, err
	}
	defer done()

	campaigns, err := o.src.BudgetMetrics(ctx)
	if err != nil {
		o.finish(ctx, "budget", executionID, started, opts, false, 0, nil, 0, err)
		return nil, err
	}

	if len(campaigns) == 0 {
		o.warnInsufficient("budget", "campaign_budget_metrics")
		o.finish(ctx, "budget", executionID, started, opts, false, 0, nil, 0, nil)
		return nil, nil
	}

	recs := budget.NewEngine(o.cfgs.Budget).Run(campaigns)
	now := time.Now().UTC()
	counts := make(map[string]int)
	for i := range recs {
		stamp(&recs[i].RecordMeta, executionID, opts.DryRun, now)
		counts[string(recs[i].Action)]++
		o.metrics.Decisions.WithLabelValues("budget", string(recs[i].Action)).Inc()
	}

	if opts.DryRun {
		o.finish(ctx, "budget", executionID, started, opts, false, len(recs), counts, 0, nil)
		return recs, nil
	}
	if err := o.sink.SaveBudgetRecommendations(ctx, recs); err != nil {
		o.finish(ctx, "budget", executionID, started, opts, false, len(recs), counts, 0, err)
		return nil, err
	}

	applied, applyErrors := false, 0
	if opts.Apply && o.flags.BudgetExecutionMode == "APPLY" {
		applied = true
		for i := range recs {
			if recs[i].Action == domain.BudgetKeep {
				continue
			}
			err := o.applier.SetBudget(ctx, executionID, recs[i].CampaignID, recs[i].NewBudgetJPY)
			if err != nil {
				applyErrors++
			}
			if mErr := o.sink.MarkApplied(ctx, warehouse.TableBudgetRecommendations, recs[i].ID, err); mErr != nil {
				o.log.Warn().Err(mErr).Str("id", recs[i].ID).Msg("apply bookkeeping failed")
			}
		}
	}

	o.finish(ctx, "budget", executionID, started, opts, applied, len(recs), counts, applyErrors, nil)
	return recs, nil
}

// RunPlacement executes the top-of-search placement adjuster over the
// campaign snapshot. Placement changes are persisted only; there is no
// apply path for placement modifiers yet.
func (o *Orchestrator) RunPlacement(ctx context.Context, opts Options) ([]domain.PlacementRecommendation, error) {
	started := time.Now()
	executionID, done, err := o.begin(ctx, "placement")
	if err != nil {
		return nil, err
	}
	defer done()

	campaigns, err := o.src.BudgetMetrics(ctx)
	if err != nil {
		o.finish(ctx, "placement", executionID, started, opts, false, 0, nil, 0, err)
		return nil, err
	}

	if len(campaigns) == 0 {
		o.warnInsufficient("placement", "campaign_budget_metrics")
		o.finish(ctx, "placement", executionID, started, opts, false, 0, nil, 0, nil)
		return nil, nil
	}

	recs := budget.NewPlacementEngine(o.cfgs.Placement).Run(campaigns)
	now := time.Now().UTC()
	counts := make(map[string]int)
	for i := range recs {
		stamp(&recs[i].RecordMeta, executionID, opts.DryRun, now)
		counts[recs[i].Action]++
		o.metrics.Decisions.WithLabelValues("placement", recs[i].Action).Inc()
	}

	if opts.DryRun {
		o.finish(ctx, "placement", executionID, started, opts, false, len(recs), counts, 0, nil)
		return recs, nil
	}
	if err := o.sink.SavePlacementRecommendations(ctx, recs); err != nil {
		o.finish(ctx, "placement", executionID, started, opts, false, len(recs), counts, 0, err)
		return nil, err
	}
	o.finish(ctx, "placement", executionID, started, opts, false, len(recs), counts, 0, nil)
	return recs, nil
}

// RunLifecycle evaluates every product: SEO launch progress, launch-exit
// decision, then the stage machine.
func (o *Orchestrator) RunLifecycle(ctx context.Context, opts Options) ([]domain.LifecycleTransitionRecord, error) {
	started := time.Now()
	executionID, done, err := o.begin(ctx, "lifecycle")
	if err != nil {
		return nil, err
	}
	defer done()

	var (
		strategies  []domain.ProductStrategy
		seoScores   []domain.SeoScore
		lossBudgets []domain.LossBudgetSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { strategies, err = o.src.ProductStrategies(gctx); return })
	g.Go(func() (err error) { seoScores, err = o.src.SeoScores(gctx); return })
	g.Go(func() (err error) { lossBudgets, err = o.src.LossBudgets(gctx); return })
	if err := g.Wait(); err != nil {
		o.finish(ctx, "lifecycle", executionID, started, opts, false, 0, nil, 0, err)
		return nil, err
	}

	if len(strategies) == 0 {
		o.warnInsufficient("lifecycle", "product_strategy")
		o.finish(ctx, "lifecycle", executionID, started, opts, false, 0, nil, 0, nil)
		return nil, nil
	}
	if len(seoScores) == 0 {
		o.warnInsufficient("lifecycle", "seo_score_by_product")
	}

	seoByAsin := make(map[string]domain.SeoScore, len(seoScores))
	for _, s := range seoScores {
		seoByAsin[s.ASIN] = s
	}
	budgetByAsin := make(map[string]domain.LossBudgetSummary, len(lossBudgets))
	for _, lb := range lossBudgets {
		budgetByAsin[lb.ASIN] = lb
	}

	machine := lifecycle.NewMachine(o.cfgs.Lifecycle)
	evaluator := seolaunch.NewEvaluator(o.cfgs.SeoLaunch)
	now := time.Now().UTC()

	recs := make([]domain.LifecycleTransitionRecord, len(strategies))
	pg, pctx := errgroup.WithContext(ctx)
	pg.SetLimit(8)
	for i := range strategies {
		i := i
		pg.Go(func() error {
			st := strategies[i]
			if opts.ASIN != "" && st.ASIN != opts.ASIN {
				recs[i].ASIN = "" // filtered out, dropped below
				return nil
			}
			dec, err := o.evaluateProduct(pctx, machine, evaluator, st, seoByAsin[st.ASIN], budgetByAsin[st.ASIN])
			if err != nil {
				return err
			}
			recs[i] = domain.LifecycleTransitionRecord{
				ASIN:             dec.ASIN,
				FromStage:        dec.CurrentStage,
				ToStage:          dec.RecommendedStage,
				ShouldTransition: dec.ShouldTransition,
				Reason:           dec.Reason,
				ForceHarvest:     dec.ForceHarvest,
				IsEmergencyExit:  dec.IsEmergencyExit,
				ExtensionGranted: dec.ExtensionGranted,
				Warnings:         dec.Warnings,
			}
			return nil
		})
	}
	if err := pg.Wait(); err != nil {
		o.finish(ctx, "lifecycle", executionID, started, opts, false, 0, nil, 0, err)
		return nil, err
	}

	kept := recs[:0]
	counts := make(map[string]int)
	for i := range recs {
		if recs[i].ASIN == "" {
			continue
		}
		stamp(&recs[i].RecordMeta, executionID, opts.DryRun, now)
		counts[string(recs[i].ToStage)]++
		o.metrics.Decisions.WithLabelValues("lifecycle", string(recs[i].ToStage)).Inc()
		kept = append(kept, recs[i])
	}
	recs = kept

	if opts.DryRun {
		o.finish(ctx, "lifecycle", executionID, started, opts, false, len(recs), counts, 0, nil)
		return recs, nil
	}
	if err := o.sink.SaveLifecycleTransitions(ctx, recs); err != nil {
		o.finish(ctx, "lifecycle", executionID, started, opts, false, len(recs), counts, 0, err)
		return nil, err
	}

	// Write the accepted decisions back to product_strategy so the next run
	// starts from them: stage moves use the optimistic predicate, granted
	// extensions increment the window. Write-back failures are bookkept like
	// apply errors and never fail the run.
	applied, applyErrors := false, 0
	if opts.Apply {
		applied = true
		for i := range recs {
			r := recs[i]
			if r.ShouldTransition {
				if err := o.sink.UpdateStrategyStage(ctx, r.ASIN, r.FromStage, r.ToStage); err != nil {
					applyErrors++
					o.log.Warn().Err(err).Str("asin", r.ASIN).Msg("stage write-back failed")
				}
			}
			if r.ExtensionGranted {
				if err := o.sink.IncrementInvestExtension(ctx, r.ASIN); err != nil {
					applyErrors++
					o.log.Warn().Err(err).Str("asin", r.ASIN).Msg("extension write-back failed")
				}
			}
		}
	}

	o.finish(ctx, "lifecycle", executionID, started, opts, applied, len(recs), counts, applyErrors, nil)
	return recs, nil
}

// evaluateProduct runs C6+C7 and feeds the result into C8 for one product.
func (o *Orchestrator) evaluateProduct(
	ctx context.Context,
	machine *lifecycle.Machine,
	evaluator *seolaunch.Evaluator,
	st domain.ProductStrategy,
	seo domain.SeoScore,
	lossBudget domain.LossBudgetSummary,
) (lifecycle.Decision, error) {
	var (
		profits   []domain.MonthlyProfit
		coreKws   []domain.CoreKeywordConfig
		summaries []domain.KeywordRankSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { profits, err = o.src.MonthlyProfits(gctx, st.ASIN); return })
	g.Go(func() (err error) { coreKws, err = o.src.CoreKeywords(gctx, st.ASIN); return })
	g.Go(func() (err error) { summaries, err = o.src.RankSummaries(gctx, st.ASIN); return })
	if err := g.Wait(); err != nil {
		return lifecycle.Decision{}, err
	}

	var exitDecision *domain.LaunchExitDecision
	if st.Stage.IsLaunch() && len(coreKws) > 0 {
		byKeyword := make(map[string]domain.KeywordRankSummary, len(summaries))
		var clicks, orders int64
		for _, s := range summaries {
			byKeyword[s.Keyword] = s
			clicks += s.ClicksTotal
			orders += s.OrdersTotal
		}
		progress, _ := evaluator.EvaluateProduct(seolaunch.ProductInput{
			ASIN:         st.ASIN,
			CoreKeywords: coreKws,
			RankSummary:  byKeyword,
			TargetCPAJPY: float64(st.UnitPriceJPY) * st.MarginRate,
		})
		d := seolaunch.DecideExit(o.cfgs.Exit, seolaunch.ExitInput{
			ASIN:             st.ASIN,
			Stage:            st.Stage,
			Progress:         progress,
			LossBudget:       lossBudget,
			DaysSinceLaunch:  int(time.Since(st.LaunchDate).Hours() / 24),
			AsinClicksTotal:  clicks,
			AsinOrdersTotal:  orders,
			AvgDailySales30d: avgDailySales(profits, st),
		})
		exitDecision = &d
	}

	return machine.Evaluate(lifecycle.Input{
		Strategy:     st,
		Profits:      profits,
		Seo:          seo,
		ExitDecision: exitDecision,
	}), nil
}

// avgDailySales estimates units per day from the latest month's revenue.
func avgDailySales(profits []domain.MonthlyProfit, st domain.ProductStrategy) float64 {
	if len(profits) == 0 || st.UnitPriceJPY <= 0 {
		return 0
	}
	latest := profits[len(profits)-1]
	return latest.RevenueJPY / float64(st.UnitPriceJPY) / 30.0
}

// RunNegative executes the negative judger. Clusters with a NONE verdict
// are evaluated but not persisted.
func (o *Orchestrator) RunNegative(ctx context.Context, opts Options) ([]domain.NegativeKeywordSuggestion, error) {
	started := time.Now()
	executionID, done, err := o.begin(ctx, "negative")
	if err != nil {
		return nil, err
	}
	defer done()

	terms, err := o.src.SearchTerms(ctx, started.Add(-searchTermWindow))
	if err != nil {
		o.finish(ctx, "negative", executionID, started, opts, false, 0, nil, 0, err)
		return nil, err
	}
	if opts.ASIN != "" {
		terms = filterTermsByASIN(terms, opts.ASIN)
	}
	if len(terms) == 0 {
		o.warnInsufficient("negative", "search_term_stats")
		o.finish(ctx, "negative", executionID, started, opts, false, 0, nil, 0, nil)
		return nil, nil
	}

	whitelist := negative.NewWhitelist(o.cfgs.Whitelist)
	whitelist.DetectTopSpend(terms)
	all := negative.NewJudger(o.cfgs.Negative, whitelist).Run(terms)

	now := time.Now().UTC()
	counts := make(map[string]int)
	recs := make([]domain.NegativeKeywordSuggestion, 0, len(all))
	for _, s := range all {
		counts[string(s.Verdict)]++
		o.metrics.Decisions.WithLabelValues("negative", string(s.Verdict)).Inc()
		if s.Verdict == domain.VerdictNone {
			continue
		}
		stamp(&s.RecordMeta, executionID, opts.DryRun, now)
		recs = append(recs, s)
	}

	if opts.DryRun {
		o.finish(ctx, "negative", executionID, started, opts, false, len(recs), counts, 0, nil)
		return recs, nil
	}
	if err := o.sink.SaveNegativeSuggestions(ctx, recs); err != nil {
		o.finish(ctx, "negative", executionID, started, opts, false, len(recs), counts, 0, err)
		return nil, err
	}
	o.finish(ctx, "negative", executionID, started, opts, false, len(recs), counts, 0, nil)
	return recs, nil
}

// RunAutoExact executes the promotion engine over the same search-term
// window.
func (o *Orchestrator) RunAutoExact(ctx context.Context, opts Options) ([]domain.AutoExactPromotionSuggestion, error) {
	started := time.Now()
	executionID, done, err := o.begin(ctx, "auto_exact")
	if err != nil {
		return nil, err
	}
	defer done()

	terms, err := o.src.SearchTerms(ctx, started.Add(-searchTermWindow))
	if err != nil {
		o.finish(ctx, "auto_exact", executionID, started, opts, false, 0, nil, 0, err)
		return nil, err
	}
	if opts.ASIN != "" {
		terms = filterTermsByASIN(terms, opts.ASIN)
	}

	if len(terms) == 0 {
		o.warnInsufficient("auto_exact", "search_term_stats")
		o.finish(ctx, "auto_exact", executionID, started, opts, false, 0, nil, 0, nil)
		return nil, nil
	}

	recs := negative.NewPromoter(o.cfgs.Promoter).Run(terms)
	now := time.Now().UTC()
	counts := make(map[string]int)
	for i := range recs {
		stamp(&recs[i].RecordMeta, executionID, opts.DryRun, now)
		counts[recs[i].ReasonCode]++
		o.metrics.Decisions.WithLabelValues("auto_exact", recs[i].ReasonCode).Inc()
	}

	if opts.DryRun {
		o.finish(ctx, "auto_exact", executionID, started, opts, false, len(recs), counts, 0, nil)
		return recs, nil
	}
	if err := o.sink.SavePromotions(ctx, recs); err != nil {
		o.finish(ctx, "auto_exact", executionID, started, opts, false, len(recs), counts, 0, err)
		return nil, err
	}
	o.finish(ctx, "auto_exact", executionID, started, opts, false, len(recs), counts, 0, nil)
	return recs, nil
}

// RunKeywordDiscovery surfaces early promotion candidates with the relaxed
// discovery thresholds. Candidates are reported only, never persisted or
// applied; the stricter auto-exact run owns the real promotion path.
func (o *Orchestrator) RunKeywordDiscovery(ctx context.Context, opts Options) ([]domain.AutoExactPromotionSuggestion, error) {
	started := time.Now()
	executionID, done, err := o.begin(ctx, "keyword_discovery")
	if err != nil {
		return nil, err
	}
	defer done()

	terms, err := o.src.SearchTerms(ctx, started.Add(-searchTermWindow))
	if err != nil {
		o.finish(ctx, "keyword_discovery", executionID, started, opts, false, 0, nil, 0, err)
		return nil, err
	}
	if opts.ASIN != "" {
		terms = filterTermsByASIN(terms, opts.ASIN)
	}

	if len(terms) == 0 {
		o.warnInsufficient("keyword_discovery", "search_term_stats")
		o.finish(ctx, "keyword_discovery", executionID, started, opts, false, 0, nil, 0, nil)
		return nil, nil
	}

	recs := negative.NewPromoter(o.cfgs.Discovery).Run(terms)
	now := time.Now().UTC()
	counts := make(map[string]int)
	for i := range recs {
		stamp(&recs[i].RecordMeta, executionID, opts.DryRun, now)
		counts[recs[i].ReasonCode]++
		o.metrics.Decisions.WithLabelValues("keyword_discovery", recs[i].ReasonCode).Inc()
	}

	o.finish(ctx, "keyword_discovery", executionID, started, opts, false, len(recs), counts, 0, nil)
	return recs, nil
}

func filterTermsByASIN(terms []domain.SearchTermStats, asin string) []domain.SearchTermStats {
	out := terms[:0]
	for _, t := range terms {
		if t.ASIN == asin {
			out = append(out, t)
		}
	}
	return out
}
