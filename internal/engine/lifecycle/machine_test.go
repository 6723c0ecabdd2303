package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harunaga/adpilot/internal/domain"
)

func strategy(stage domain.LifecycleStage) domain.ProductStrategy {
	return domain.ProductStrategy{
		ASIN:                  "B000TEST01",
		Stage:                 stage,
		StrategyPattern:       "launch_hard",
		SustainableTacos:      0.10,
		InvestTacosCap:        0.30,
		InvestMaxLossJPYMonth: 50000,
		InvestWindowMonths:    6,
		LaunchDate:            time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		MarginRate:            0.3,
		UnitPriceJPY:          2000,
		ReviewRating:          4.2,
		ReviewCount:           50,
	}
}

func month(n int, net, cum, tacos float64) domain.MonthlyProfit {
	return domain.MonthlyProfit{
		ASIN: "B000TEST01", NetProfitJPY: net, NetProfitCumJPY: cum,
		Tacos: tacos, MonthsSinceLaunch: n,
	}
}

func goodSeo() domain.SeoScore {
	return domain.SeoScore{Overall: 80, Trend: domain.TrendUp, Zone: domain.ZoneTop}
}

// Property 7: safety precedence over every per-stage rule.
func TestEvaluate_SafetyConsecutiveLosses(t *testing.T) {
	m := NewMachine(DefaultConfig())

	in := Input{
		Strategy: strategy(domain.StageLaunchHard),
		Profits: []domain.MonthlyProfit{
			month(3, -60000, -60000, 0.2),
			month(4, -70000, -130000, 0.2),
			month(5, -55000, -185000, 0.2),
		},
		Seo: goodSeo(),
	}
	d := m.Evaluate(in)
	assert.True(t, d.ForceHarvest)
	assert.Equal(t, domain.StageHarvest, d.RecommendedStage)
	assert.True(t, d.ShouldTransition)
}

func TestEvaluate_SafetyCumulativeLoss(t *testing.T) {
	m := NewMachine(DefaultConfig())

	in := Input{
		Strategy: strategy(domain.StageGrow),
		Profits:  []domain.MonthlyProfit{month(8, -10000, -600000, 0.15)},
		Seo:      goodSeo(),
	}
	d := m.Evaluate(in)
	assert.True(t, d.ForceHarvest)
	assert.Equal(t, domain.StageHarvest, d.RecommendedStage)
}

func TestEvaluate_SafetyBadReviews(t *testing.T) {
	m := NewMachine(DefaultConfig())

	st := strategy(domain.StageLaunchSoft)
	st.ReviewRating = 2.4
	st.ReviewCount = 25
	in := Input{Strategy: st, Profits: []domain.MonthlyProfit{month(2, 1000, 1000, 0.1)}, Seo: goodSeo()}

	d := m.Evaluate(in)
	assert.True(t, d.ForceHarvest)

	// Thin review counts are not trusted.
	st.ReviewCount = 3
	d = m.Evaluate(Input{Strategy: st, Profits: []domain.MonthlyProfit{month(2, 1000, 1000, 0.1)}, Seo: goodSeo()})
	assert.False(t, d.ForceHarvest)
}

func TestEvaluate_LaunchHardDowngrades(t *testing.T) {
	m := NewMachine(DefaultConfig())

	// TACOS over invest cap.
	in := Input{
		Strategy: strategy(domain.StageLaunchHard),
		Profits:  []domain.MonthlyProfit{month(2, -10000, -10000, 0.45)},
		Seo:      goodSeo(),
	}
	d := m.Evaluate(in)
	assert.Equal(t, domain.StageLaunchSoft, d.RecommendedStage)
	assert.True(t, d.ShouldTransition)

	// Stalled SEO.
	in.Profits = []domain.MonthlyProfit{month(2, -10000, -10000, 0.2)}
	in.Seo = domain.SeoScore{Overall: 55, Trend: domain.TrendDown, Zone: domain.ZoneMid}
	d = m.Evaluate(in)
	assert.Equal(t, domain.StageLaunchSoft, d.RecommendedStage)
}

func TestEvaluate_LaunchHardToGrowNeedsEverything(t *testing.T) {
	m := NewMachine(DefaultConfig())

	in := Input{
		Strategy: strategy(domain.StageLaunchHard),
		Profits:  []domain.MonthlyProfit{month(7, 5000, -20000, 0.11)}, // window 6 served
		Seo:      goodSeo(),
	}
	d := m.Evaluate(in)
	assert.Equal(t, domain.StageGrow, d.RecommendedStage)

	// Same but unprofitable month: stays.
	in.Profits = []domain.MonthlyProfit{month(7, -5000, -20000, 0.11)}
	d = m.Evaluate(in)
	assert.NotEqual(t, domain.StageGrow, d.RecommendedStage)
}

func TestEvaluate_LaunchSoftTransitions(t *testing.T) {
	m := NewMachine(DefaultConfig())

	// To GROW on high SEO + breakeven.
	in := Input{
		Strategy: strategy(domain.StageLaunchSoft),
		Profits:  []domain.MonthlyProfit{month(4, 2000, -30000, 0.2)},
		Seo:      goodSeo(),
	}
	d := m.Evaluate(in)
	assert.Equal(t, domain.StageGrow, d.RecommendedStage)

	// To HARVEST on exceeded window + low SEO + cumulative loss.
	in.Profits = []domain.MonthlyProfit{month(8, -2000, -90000, 0.2)}
	in.Seo = domain.SeoScore{Overall: 20, Trend: domain.TrendDown, Zone: domain.ZoneOutOfRange}
	d = m.Evaluate(in)
	assert.Equal(t, domain.StageHarvest, d.RecommendedStage)
}

func TestEvaluate_GrowTransitions(t *testing.T) {
	m := NewMachine(DefaultConfig())

	// To HARVEST when established.
	in := Input{
		Strategy: strategy(domain.StageGrow),
		Profits:  []domain.MonthlyProfit{month(10, 30000, 100000, 0.08)},
		Seo:      goodSeo(),
	}
	d := m.Evaluate(in)
	assert.Equal(t, domain.StageHarvest, d.RecommendedStage)
	assert.False(t, d.ForceHarvest)

	// Reinvest only when allowed.
	in.Profits = []domain.MonthlyProfit{month(10, 5000, 100000, 0.15)}
	in.Seo = domain.SeoScore{Overall: 60, Trend: domain.TrendDown, Zone: domain.ZoneMid}
	d = m.Evaluate(in)
	assert.Equal(t, domain.StageGrow, d.RecommendedStage, "reinvest blocked without the flag")

	in.Strategy.ReinvestAllowed = true
	d = m.Evaluate(in)
	assert.Equal(t, domain.StageLaunchSoft, d.RecommendedStage)
}

func TestEvaluate_HarvestIsSticky(t *testing.T) {
	m := NewMachine(DefaultConfig())

	in := Input{
		Strategy: strategy(domain.StageHarvest),
		Profits:  []domain.MonthlyProfit{month(14, 50000, 300000, 0.05)},
		Seo:      goodSeo(),
	}
	d := m.Evaluate(in)
	assert.Equal(t, domain.StageHarvest, d.RecommendedStage)
	assert.False(t, d.ShouldTransition)
}

func TestEvaluate_ExtensionGrantAndDenial(t *testing.T) {
	m := NewMachine(DefaultConfig())

	// At window edge with a good trend, tolerable loss and TACOS in cap.
	in := Input{
		Strategy: strategy(domain.StageLaunchHard),
		Profits:  []domain.MonthlyProfit{month(6, -30000, -100000, 0.25)}, // loss within 0.8 x 50000
		Seo:      domain.SeoScore{Overall: 60, Trend: domain.TrendFlat, Zone: domain.ZoneMid},
	}
	d := m.Evaluate(in)
	assert.True(t, d.ExtensionGranted)

	// Loss beyond tolerance denies.
	in.Profits = []domain.MonthlyProfit{month(6, -45000, -100000, 0.25)}
	d = m.Evaluate(in)
	assert.False(t, d.ExtensionGranted)
	assert.NotEmpty(t, d.Warnings)

	// Already at the dynamic cap denies.
	in.Strategy.InvestWindowExtension = 3
	in.Profits = []domain.MonthlyProfit{month(9, -30000, -100000, 0.25)}
	d = m.Evaluate(in)
	assert.False(t, d.ExtensionGranted)
}

func TestEvaluate_ExitDecisionOverridesTable(t *testing.T) {
	m := NewMachine(DefaultConfig())

	exit := &domain.LaunchExitDecision{
		ASIN: "B000TEST01", Kind: domain.ExitEmergency, ShouldExit: true,
		IsEmergency: true, TargetStage: domain.StageGrow,
		ReasonCode: domain.ExitReasonLossRatioEmergency,
	}
	in := Input{
		Strategy:     strategy(domain.StageLaunchHard),
		Profits:      []domain.MonthlyProfit{month(2, -10000, -10000, 0.2)},
		Seo:          goodSeo(),
		ExitDecision: exit,
	}
	d := m.Evaluate(in)
	assert.Equal(t, domain.StageGrow, d.RecommendedStage)
	assert.True(t, d.ShouldTransition)
	assert.True(t, d.IsEmergencyExit)
}

func TestEvaluate_SafetyBeatsExitDecision(t *testing.T) {
	m := NewMachine(DefaultConfig())

	exit := &domain.LaunchExitDecision{ShouldExit: true, TargetStage: domain.StageGrow}
	in := Input{
		Strategy:     strategy(domain.StageLaunchHard),
		Profits:      []domain.MonthlyProfit{month(8, -10000, -700000, 0.2)},
		Seo:          goodSeo(),
		ExitDecision: exit,
	}
	d := m.Evaluate(in)
	assert.True(t, d.ForceHarvest)
	assert.Equal(t, domain.StageHarvest, d.RecommendedStage)
}
