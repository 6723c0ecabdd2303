package negative

import (
	"sort"
	"strings"

	"github.com/harunaga/adpilot/internal/domain"
)

// WhitelistConfig names the three protection sources: a global phrase list,
// manual per-ASIN lists, and automatic detection of each ASIN's top-N
// queries by accumulated spend. AutoTopSpendN = 0 disables detection.
type WhitelistConfig struct {
	Global        []string            `yaml:"global"`
	ByASIN        map[string][]string `yaml:"by_asin"`
	AutoTopSpendN int                 `yaml:"auto_top_spend_n"`
}

// DefaultWhitelistConfig protects nothing manually and auto-detects the ten
// biggest spenders per ASIN.
func DefaultWhitelistConfig() WhitelistConfig {
	return WhitelistConfig{AutoTopSpendN: 10}
}

// Whitelist protects queries from automated negation. Manual entries are
// normalized phrases matched by containment; auto-detected entries are whole
// canonical queries. Matching only ever reduces a verdict's severity.
type Whitelist struct {
	global []string
	byASIN map[string][]string
	auto   map[string]map[string]struct{} // ASIN -> canonical query set
	topN   int
}

// NewWhitelist builds a whitelist from the three configured sources. Auto
// detection runs later, against the search-term window, via DetectTopSpend.
func NewWhitelist(cfg WhitelistConfig) *Whitelist {
	w := &Whitelist{
		byASIN: make(map[string][]string, len(cfg.ByASIN)),
		auto:   make(map[string]map[string]struct{}),
		topN:   cfg.AutoTopSpendN,
	}
	for _, p := range cfg.Global {
		if n := Normalize(p); n != "" {
			w.global = append(w.global, n)
		}
	}
	for asin, phrases := range cfg.ByASIN {
		for _, p := range phrases {
			if n := Normalize(p); n != "" {
				w.byASIN[asin] = append(w.byASIN[asin], n)
			}
		}
	}
	return w
}

// DetectTopSpend marks each ASIN's top-N canonical queries by accumulated
// spend as protected: the highest-stake terms are never negated without a
// human putting them on a negative list directly.
func (w *Whitelist) DetectTopSpend(stats []domain.SearchTermStats) {
	if w.topN <= 0 {
		return
	}
	type spend struct {
		query string
		jpy   float64
	}
	byASIN := make(map[string]map[string]float64)
	for _, s := range stats {
		q := Normalize(s.Query)
		if q == "" {
			continue
		}
		m, ok := byASIN[s.ASIN]
		if !ok {
			m = make(map[string]float64)
			byASIN[s.ASIN] = m
		}
		m[q] += s.SpendJPY
	}
	for asin, m := range byASIN {
		ranked := make([]spend, 0, len(m))
		for q, jpy := range m {
			ranked = append(ranked, spend{q, jpy})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].jpy != ranked[j].jpy {
				return ranked[i].jpy > ranked[j].jpy
			}
			return ranked[i].query < ranked[j].query
		})
		if len(ranked) > w.topN {
			ranked = ranked[:w.topN]
		}
		set := make(map[string]struct{}, len(ranked))
		for _, r := range ranked {
			set[r.query] = struct{}{}
		}
		w.auto[asin] = set
	}
}

// Matches reports whether the cluster key's query part is protected for the
// ASIN by any of the three sources.
func (w *Whitelist) Matches(asin, clusterKey string) bool {
	query := clusterKey
	if i := strings.Index(clusterKey, "::"); i >= 0 {
		query = clusterKey[:i]
	}
	for _, p := range w.global {
		if strings.Contains(query, p) {
			return true
		}
	}
	for _, p := range w.byASIN[asin] {
		if strings.Contains(query, p) {
			return true
		}
	}
	_, ok := w.auto[asin][query]
	return ok
}
