package seolaunch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunaga/adpilot/internal/domain"
)

func intPtr(v int) *int { return &v }

func coreKw(keyword string, tier domain.KeywordTier, volume int64) domain.CoreKeywordConfig {
	return domain.CoreKeywordConfig{
		ASIN:          "B000TEST01",
		Keyword:       keyword,
		Tier:          tier,
		TargetRankMin: 1,
		TargetRankMax: 10,
		SearchVolume:  volume,
		Role:          domain.RoleCore,
	}
}

func TestEvaluateProduct_Achieved(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	in := ProductInput{
		ASIN:         "B000TEST01",
		CoreKeywords: []domain.CoreKeywordConfig{coreKw("bottle", domain.TierMiddle, 1000)},
		RankSummary: map[string]domain.KeywordRankSummary{
			"bottle": {
				Keyword:          "bottle",
				CurrentRank:      intPtr(8),
				BestRank:         intPtr(5),
				DaysWithRankData: 40,
				ImpressionsTotal: 2000,
				ClicksTotal:      50,
				OrdersTotal:      5,
			},
		},
		TargetCPAJPY: 600,
	}
	progress, verdicts := e.EvaluateProduct(in)

	require.Len(t, verdicts, 1)
	assert.Equal(t, domain.LaunchAchieved, verdicts[0].Status)
	assert.Equal(t, 1, progress.Achieved)
	assert.InDelta(t, 1.0, progress.SuccessRatio, 1e-9)
}

func TestEvaluateProduct_AchievedNeedsTraffic(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	in := ProductInput{
		ASIN:         "B000TEST01",
		CoreKeywords: []domain.CoreKeywordConfig{coreKw("bottle", domain.TierMiddle, 1000)},
		RankSummary: map[string]domain.KeywordRankSummary{
			// In-band rank but almost no impressions: not trusted yet.
			"bottle": {Keyword: "bottle", CurrentRank: intPtr(3), ImpressionsTotal: 50, ClicksTotal: 2},
		},
		TargetCPAJPY: 600,
	}
	_, verdicts := e.EvaluateProduct(in)
	assert.Equal(t, domain.LaunchActive, verdicts[0].Status)
}

func TestEvaluateProduct_GaveUpRankFailure(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	in := ProductInput{
		ASIN:         "B000TEST01",
		CoreKeywords: []domain.CoreKeywordConfig{coreKw("bottle", domain.TierMiddle, 1000)},
		RankSummary: map[string]domain.KeywordRankSummary{
			"bottle": {
				Keyword:          "bottle",
				CurrentRank:      nil,
				BestRank:         intPtr(45), // never near the 20 threshold
				DaysWithRankData: 35,
				ClicksTotal:      80,
				CostTotalJPY:     2500, // >= 3 x 600
			},
		},
		TargetCPAJPY: 600,
	}
	_, verdicts := e.EvaluateProduct(in)
	assert.Equal(t, domain.LaunchGaveUp, verdicts[0].Status)
}

func TestEvaluateProduct_GaveUpPerformanceFailure(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	in := ProductInput{
		ASIN:         "B000TEST01",
		CoreKeywords: []domain.CoreKeywordConfig{coreKw("bottle", domain.TierMiddle, 1000)},
		RankSummary: map[string]domain.KeywordRankSummary{
			"bottle": {
				Keyword:          "bottle",
				CurrentRank:      intPtr(15), // outside target band
				BestRank:         intPtr(12), // inside rank threshold: rank path does not fire
				DaysWithRankData: 35,
				ClicksTotal:      80,
				OrdersTotal:      0, // cvr 0
				CostTotalJPY:     2500,
				RevenueTotalJPY:  0, // acos sentinel
			},
		},
		TargetCPAJPY: 600,
	}
	_, verdicts := e.EvaluateProduct(in)
	assert.Equal(t, domain.LaunchGaveUp, verdicts[0].Status)
}

// Property 3: conservation across the three buckets.
func TestEvaluateProduct_Conservation(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	in := ProductInput{
		ASIN: "B000TEST01",
		CoreKeywords: []domain.CoreKeywordConfig{
			coreKw("a", domain.TierBig, 5000),
			coreKw("b", domain.TierMiddle, 1000),
			coreKw("c", domain.TierMiddle, 800),
			coreKw("d", domain.TierBrand, 200),
		},
		RankSummary: map[string]domain.KeywordRankSummary{
			"a": {Keyword: "a", CurrentRank: intPtr(5), ImpressionsTotal: 3000, ClicksTotal: 40},
		},
		TargetCPAJPY: 600,
	}
	progress, _ := e.EvaluateProduct(in)
	assert.Equal(t, progress.Total, progress.Achieved+progress.GaveUp+progress.Active)
	assert.Equal(t, 4, progress.Total)
}

func TestResolveThresholds_VolumeBuckets(t *testing.T) {
	cfg := DefaultConfig()
	keywords := []domain.CoreKeywordConfig{
		coreKw("high", domain.TierMiddle, 4000),
		coreKw("mid", domain.TierMiddle, 1000),
		coreKw("low", domain.TierMiddle, 300),
	}
	median := medianVolume(keywords) // 1000

	high := resolveThresholds(cfg, keywords[0], median)
	assert.Equal(t, domain.VolumeHigh, high.Bucket)
	assert.Equal(t, 39, high.MinDays)          // 30 x 1.3
	assert.Equal(t, int64(78), high.MinClicks) // 60 x 1.3
	assert.Equal(t, 25, high.RankThreshold)    // 20 + 5

	mid := resolveThresholds(cfg, keywords[1], median)
	assert.Equal(t, domain.VolumeMid, mid.Bucket)
	assert.Equal(t, 30, mid.MinDays)
	assert.Equal(t, 20, mid.RankThreshold)

	low := resolveThresholds(cfg, keywords[2], median)
	assert.Equal(t, domain.VolumeLow, low.Bucket)
	assert.Equal(t, 21, low.MinDays)          // 30 x 0.7
	assert.Equal(t, int64(42), low.MinClicks) // 60 x 0.7
	assert.Equal(t, 15, low.RankThreshold)    // 20 - 5

	// Zero median: everything is MID at ratio 1.0.
	zero := resolveThresholds(cfg, coreKw("x", domain.TierMiddle, 0), 0)
	assert.Equal(t, domain.VolumeMid, zero.Bucket)
	assert.InDelta(t, 1.0, zero.VolumeRatio, 1e-9)
}
