package negative

import (
	"sort"

	"github.com/harunaga/adpilot/internal/domain"
)

// Cluster is the aggregated view of one (canonical query, intent) group
// within an ASIN. Verdicts are issued per cluster, never per raw query row.
type Cluster struct {
	Key         string
	ASIN        string
	CampaignID  string
	AdGroupID   string
	Query       string // representative: the highest-spend member
	Intent      domain.IntentTag
	Impressions int64
	Clicks      int64
	Conversions int64
	SpendJPY    float64
	SalesJPY    float64
	BaselineCvr float64 // click-weighted across members
	TargetAcos  float64
}

// Cvr is conversions per click (0 when no clicks).
func (c Cluster) Cvr() float64 {
	if c.Clicks == 0 {
		return 0
	}
	return float64(c.Conversions) / float64(c.Clicks)
}

// Acos is spend over sales, with a large sentinel when spend has no sales.
func (c Cluster) Acos() float64 {
	if c.SalesJPY <= 0 {
		if c.SpendJPY > 0 {
			return 999
		}
		return 0
	}
	return c.SpendJPY / c.SalesJPY
}

// BuildClusters groups search-term rows by ASIN + cluster key and aggregates
// their counters. Output order is deterministic: sorted by ASIN then key.
func BuildClusters(tagger *Tagger, stats []domain.SearchTermStats) []Cluster {
	type acc struct {
		c            Cluster
		topSpend     float64
		weightedCvr  float64
		weightClicks int64
	}
	byKey := make(map[string]*acc)

	for _, s := range stats {
		key := s.ASIN + "|" + tagger.ClusterKey(s.Query)
		a, ok := byKey[key]
		if !ok {
			a = &acc{c: Cluster{
				Key:        tagger.ClusterKey(s.Query),
				ASIN:       s.ASIN,
				CampaignID: s.CampaignID,
				AdGroupID:  s.AdGroupID,
				Query:      s.Query,
				Intent:     tagger.Tag(s.Query),
				TargetAcos: s.TargetAcos,
			}, topSpend: -1}
			byKey[key] = a
		}
		a.c.Impressions += s.Impressions
		a.c.Clicks += s.Clicks
		a.c.Conversions += s.Conversions
		a.c.SpendJPY += s.SpendJPY
		a.c.SalesJPY += s.SalesJPY
		if s.SpendJPY > a.topSpend {
			a.topSpend = s.SpendJPY
			a.c.Query = s.Query
			a.c.CampaignID = s.CampaignID
			a.c.AdGroupID = s.AdGroupID
		}
		a.weightedCvr += s.BaselineCvr * float64(s.Clicks)
		a.weightClicks += s.Clicks
	}

	out := make([]Cluster, 0, len(byKey))
	for _, a := range byKey {
		if a.weightClicks > 0 {
			a.c.BaselineCvr = a.weightedCvr / float64(a.weightClicks)
		}
		out = append(out, a.c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ASIN != out[j].ASIN {
			return out[i].ASIN < out[j].ASIN
		}
		return out[i].Key < out[j].Key
	})
	return out
}
