package negative

import (
	"strings"

	"github.com/harunaga/adpilot/internal/domain"
)

// IntentTaggerConfig is the immutable keyword-set configuration built at
// startup. Runtime re-tagging means building a new tagger; there is no
// mutable registry.
type IntentTaggerConfig struct {
	ChildTerms   []string `yaml:"child_terms"`
	AdultTerms   []string `yaml:"adult_terms"`
	ConcernTerms []string `yaml:"concern_terms"`
	InfoTerms    []string `yaml:"info_terms"`
}

// DefaultIntentTaggerConfig is the stock term layering.
func DefaultIntentTaggerConfig() IntentTaggerConfig {
	return IntentTaggerConfig{
		ChildTerms:   []string{"kids", "child", "children", "baby", "toddler", "boys", "girls", "子供", "キッズ", "ベビー"},
		AdultTerms:   []string{"adult", "men", "mens", "women", "womens", "大人", "メンズ", "レディース"},
		ConcernTerms: []string{"safe", "safety", "bpa free", "allergy", "organic", "安全", "無添加"},
		InfoTerms:    []string{"how to", "what is", "review", "vs", "compare", "とは", "比較", "口コミ"},
	}
}

// Tagger classifies a normalized query into an intent tag via a layered
// keyword-set scan.
type Tagger struct {
	layers []layer
}

type layer struct {
	tag   domain.IntentTag
	terms []string
}

// NewTagger builds an immutable tagger from the config. Layer order is the
// tie-break priority: child > adult > concern > info > generic.
func NewTagger(cfg IntentTaggerConfig) *Tagger {
	norm := func(terms []string) []string {
		out := make([]string, len(terms))
		for i, t := range terms {
			out[i] = strings.ToLower(strings.TrimSpace(t))
		}
		return out
	}
	return &Tagger{layers: []layer{
		{domain.IntentChild, norm(cfg.ChildTerms)},
		{domain.IntentAdult, norm(cfg.AdultTerms)},
		{domain.IntentConcern, norm(cfg.ConcernTerms)},
		{domain.IntentInfo, norm(cfg.InfoTerms)},
	}}
}

// Tag returns the first layer containing a term of the normalized query.
func (t *Tagger) Tag(query string) domain.IntentTag {
	q := Normalize(query)
	for _, l := range t.layers {
		for _, term := range l.terms {
			if term != "" && strings.Contains(q, term) {
				return l.tag
			}
		}
	}
	return domain.IntentGeneric
}

// ClusterKey builds the cluster identity: canonical query :: intent tag.
func (t *Tagger) ClusterKey(query string) string {
	return Normalize(query) + "::" + string(t.Tag(query))
}

// Normalize lowercases and collapses whitespace so near-duplicate queries
// land in the same cluster.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
