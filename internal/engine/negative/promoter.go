package negative

import (
	"fmt"
	"math"
	"strings"

	"github.com/harunaga/adpilot/internal/domain"
)

// Promoter is the inverse of the judger: search terms that prove themselves
// get promoted to exact-match keywords so their bids can be managed directly.
type Promoter struct {
	cfg PromoterConfig
}

// NewPromoter builds a promoter.
func NewPromoter(cfg PromoterConfig) *Promoter {
	return &Promoter{cfg: cfg}
}

// Run scans per-query rows (not clusters: promotions target the literal
// query) and returns suggestions for terms that cleared either bar. Queries
// already running as their matched keyword are skipped.
func (p *Promoter) Run(stats []domain.SearchTermStats) []domain.AutoExactPromotionSuggestion {
	var out []domain.AutoExactPromotionSuggestion
	for _, s := range stats {
		if Normalize(s.Query) == Normalize(s.MatchedKeyword) {
			continue
		}
		code, detail, ok := p.qualify(s)
		if !ok {
			continue
		}
		out = append(out, domain.AutoExactPromotionSuggestion{
			ASIN:            s.ASIN,
			CampaignID:      s.CampaignID,
			AdGroupID:       s.AdGroupID,
			Query:           strings.TrimSpace(s.Query),
			ReasonCode:      code,
			ReasonDetail:    detail,
			Conversions:     s.Conversions,
			Cvr:             cvrOf(s),
			Acos:            acosOf(s),
			SuggestedBidJPY: p.suggestedBid(s),
		})
	}
	return out
}

func (p *Promoter) qualify(s domain.SearchTermStats) (string, string, bool) {
	cvr := cvrOf(s)
	acos := acosOf(s)

	if s.Conversions >= p.cfg.MinConversions && s.BaselineCvr > 0 && cvr >= s.BaselineCvr {
		return domain.PromoReasonProvenConverter,
			fmt.Sprintf("%d conversions at CVR %.4f, baseline %.4f", s.Conversions, cvr, s.BaselineCvr), true
	}
	if s.Conversions >= p.cfg.MinEfficientConv && s.TargetAcos > 0 && s.SalesJPY > 0 &&
		acos <= s.TargetAcos*p.cfg.EfficientAcosRatio {
		return domain.PromoReasonEfficientSpend,
			fmt.Sprintf("ACOS %.3f under %.0f%% of target %.3f", acos, p.cfg.EfficientAcosRatio*100, s.TargetAcos), true
	}
	return "", "", false
}

// suggestedBid marks up the observed CPC, floored at the minimum bid.
func (p *Promoter) suggestedBid(s domain.SearchTermStats) int64 {
	if s.Clicks == 0 {
		return p.cfg.MinSuggestedBidJPY
	}
	cpc := s.SpendJPY / float64(s.Clicks)
	bid := int64(math.Round(cpc * (1 + p.cfg.SuggestedBidMarkup)))
	if bid < p.cfg.MinSuggestedBidJPY {
		bid = p.cfg.MinSuggestedBidJPY
	}
	return bid
}

func cvrOf(s domain.SearchTermStats) float64 {
	if s.Clicks == 0 {
		return 0
	}
	return float64(s.Conversions) / float64(s.Clicks)
}

func acosOf(s domain.SearchTermStats) float64 {
	if s.SalesJPY <= 0 {
		if s.SpendJPY > 0 {
			return 999
		}
		return 0
	}
	return s.SpendJPY / s.SalesJPY
}
