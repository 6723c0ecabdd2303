package seolaunch

import (
	"sort"

	"github.com/harunaga/adpilot/internal/domain"
)

// GiveUpThresholds are the effective per-keyword give-up gates after
// tier x volume-bucket scaling.
type GiveUpThresholds struct {
	MinDays       int
	MinClicks     int64
	RankThreshold int
	Bucket        domain.VolumeBucket
	VolumeRatio   float64
}

// tierBase returns the unscaled gates per tier. BIG keywords get more rope:
// they take longer and cost more before a give-up is trusted.
func tierBase(cfg Config, tier domain.KeywordTier) (minDays int, minClicks int64, rankThreshold int) {
	if tier == domain.TierBig {
		return cfg.BigTierMinDays, cfg.BigTierMinClicks, cfg.BigTierRankThreshold
	}
	return cfg.MidTierMinDays, cfg.MidTierMinClicks, cfg.MidTierRankThreshold
}

// medianVolume is the median search volume across the ASIN's core keywords.
func medianVolume(keywords []domain.CoreKeywordConfig) float64 {
	if len(keywords) == 0 {
		return 0
	}
	vols := make([]int64, len(keywords))
	for i, k := range keywords {
		vols[i] = k.SearchVolume
	}
	sort.Slice(vols, func(i, j int) bool { return vols[i] < vols[j] })
	n := len(vols)
	if n%2 == 1 {
		return float64(vols[n/2])
	}
	return float64(vols[n/2-1]+vols[n/2]) / 2
}

// bucketFor categorizes a keyword's volume against the ASIN median.
// A zero median reads as ratio 1.0 (MID).
func bucketFor(volume int64, median float64) (domain.VolumeBucket, float64) {
	ratio := 1.0
	if median > 0 {
		ratio = float64(volume) / median
	}
	switch {
	case ratio >= 2.0:
		return domain.VolumeHigh, ratio
	case ratio < 0.5:
		return domain.VolumeLow, ratio
	default:
		return domain.VolumeMid, ratio
	}
}

// resolveThresholds computes the effective give-up gates for one keyword.
// Day and click gates scale by the bucket multiplier; the rank threshold
// shifts by ±5 instead (a HIGH-volume keyword may give up from a worse rank,
// a LOW-volume one must get closer first).
func resolveThresholds(cfg Config, kw domain.CoreKeywordConfig, median float64) GiveUpThresholds {
	minDays, minClicks, rankThreshold := tierBase(cfg, kw.Tier)
	bucket, ratio := bucketFor(kw.SearchVolume, median)

	mult := 1.0
	rankShift := 0
	switch bucket {
	case domain.VolumeHigh:
		mult = cfg.HighVolumeMultiplier // 1.3
		rankShift = cfg.RankThresholdShift
	case domain.VolumeLow:
		mult = cfg.LowVolumeMultiplier // 0.7
		rankShift = -cfg.RankThresholdShift
	}

	return GiveUpThresholds{
		MinDays:       int(float64(minDays)*mult + 0.5),
		MinClicks:     int64(float64(minClicks)*mult + 0.5),
		RankThreshold: rankThreshold + rankShift,
		Bucket:        bucket,
		VolumeRatio:   ratio,
	}
}
