package bid

import (
	"fmt"

	"github.com/harunaga/adpilot/internal/domain"
)

// Engine drives the classifier, guardrail resolver, coefficient calculator
// and bid computer over a batch of keyword metrics. Pure: no I/O, no clock,
// no mutation of inputs.
type Engine struct {
	cfg  Config
	mode domain.EngineMode
}

// NewEngine builds a bid engine for one mode.
func NewEngine(cfg Config, mode domain.EngineMode) *Engine {
	return &Engine{cfg: cfg, mode: mode}
}

// BatchInput is one engine run's snapshot.
type BatchInput struct {
	Keywords    []domain.KeywordMetrics
	Strategies  map[string]domain.ProductStrategy   // by ASIN
	LossBudgets map[string]domain.LossBudgetSummary // by ASIN
}

// Run emits exactly one recommendation per input keyword, in input order.
// A single keyword's failure is isolated into a KEEP record with the error
// in the reason detail.
func (e *Engine) Run(in BatchInput) []domain.BidRecommendation {
	out := make([]domain.BidRecommendation, 0, len(in.Keywords))
	for _, kw := range in.Keywords {
		rec, err := e.evaluate(kw, in)
		if err != nil {
			rec = errorRecommendation(kw, err)
		}
		out = append(out, rec)
	}
	return out
}

func (e *Engine) evaluate(kw domain.KeywordMetrics, in BatchInput) (domain.BidRecommendation, error) {
	if kw.KeywordID == "" {
		return domain.BidRecommendation{}, fmt.Errorf("keyword id missing")
	}
	if kw.CurrentBidJPY <= 0 {
		return domain.BidRecommendation{}, fmt.Errorf("keyword %s: non-positive current bid %d", kw.KeywordID, kw.CurrentBidJPY)
	}

	strategy, hasStrategy := in.Strategies[kw.ASIN]
	stage := domain.StageGrow
	investMode := false
	var targetCPA float64
	if hasStrategy {
		stage = strategy.Stage
		investMode = stage.IsLaunch()
		targetCPA = float64(strategy.UnitPriceJPY) * strategy.MarginRate
	}
	lossState := domain.InvestSafe
	if lb, ok := in.LossBudgets[kw.ASIN]; ok {
		lossState = lb.State
	}

	action, reason := Classify(e.cfg, ClassifyInput{
		AcosActual: kw.AcosActual,
		AcosTarget: kw.AcosTarget,
		Clicks:     kw.Clicks30d,
		Phase:      kw.Phase,
		BrandType:  kw.BrandType,
		Role:       kw.Role,
		InvestMode: investMode,
		Mode:       e.mode,
	})

	gin := GuardrailInput{
		Role:       kw.Role,
		Stage:      stage,
		Phase:      kw.Phase,
		LossBudget: lossState,
		Clicks:     kw.Clicks30d,
		SpendJPY:   kw.SpendJPY30d,
		TargetCPA:  targetCPA,
	}
	guardrails := ResolveGuardrails(e.cfg.Guardrails, gin)

	final, fell := guardrails.Recheck(action, gin)
	if fell {
		reason = domain.BidReasonGuardrailFallback
	}

	coeffs := ComputeCoefficients(e.cfg, CoefficientInput{Metrics: kw, Action: final, Mode: e.mode})
	result := ComputeBid(e.cfg, guardrails, kw, final, coeffs)

	rec := domain.BidRecommendation{
		KeywordID:     kw.KeywordID,
		Keyword:       kw.Keyword,
		CampaignID:    kw.CampaignID,
		AdGroupID:     kw.AdGroupID,
		ASIN:          kw.ASIN,
		Role:          kw.Role,
		Stage:         stage,
		Action:        final,
		ReasonCode:    reason,
		CurrentBidJPY: kw.CurrentBidJPY,
		NewBidJPY:     result.NewBidJPY,
		ChangeRate:    result.ChangeRate,
		Coefficients:  coeffs,
		Clipped:       result.Clipped,
		ClipReason:    result.ClipReason,
		GuardrailHit:  fell,
	}
	rec.Reason = buildReason(kw, final, coeffs, result, guardrails)
	rec.ReasonDetail = rec.Reason.Logic
	return rec, nil
}

// buildReason assembles the facts / logic / impact triple.
func buildReason(kw domain.KeywordMetrics, action domain.Action, coeffs domain.Coefficients, r BidResult, g Guardrails) domain.ReasonTriple {
	facts := fmt.Sprintf("acos=%.3f target=%.3f clicks_30d=%d cvr=%.4f/%.4f rank=%d/%d",
		kw.AcosActual, kw.AcosTarget, kw.Clicks30d, kw.CvrRecent, kw.CvrBaseline, kw.RankCurrent, kw.RankTarget)
	logic := fmt.Sprintf("action=%s coeffs=%.3f guardrails[%s]", action, coeffs.Product(), g.Describe())
	impact := fmt.Sprintf("bid %d -> %d (%.1f%%)", kw.CurrentBidJPY, r.NewBidJPY, r.ChangeRate*100)
	return domain.ReasonTriple{Facts: facts, Logic: logic, Impact: impact}
}

func errorRecommendation(kw domain.KeywordMetrics, err error) domain.BidRecommendation {
	return domain.BidRecommendation{
		KeywordID:     kw.KeywordID,
		Keyword:       kw.Keyword,
		CampaignID:    kw.CampaignID,
		AdGroupID:     kw.AdGroupID,
		ASIN:          kw.ASIN,
		Role:          kw.Role,
		Action:        domain.ActionKeep,
		ReasonCode:    domain.BidReasonError,
		ReasonDetail:  err.Error(),
		CurrentBidJPY: kw.CurrentBidJPY,
		NewBidJPY:     kw.CurrentBidJPY,
		Coefficients:  domain.NeutralCoefficients(),
	}
}
