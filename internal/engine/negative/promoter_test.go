package negative

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harunaga/adpilot/internal/domain"
)

func TestPromoter_ProvenConverter(t *testing.T) {
	p := NewPromoter(DefaultPromoterConfig())

	// 4 conversions at CVR 0.08 over the 0.05 baseline.
	out := p.Run([]domain.SearchTermStats{term("insulated water jug", 2000, 50, 4, 4000, 12000)})
	assert.Len(t, out, 1)
	assert.Equal(t, domain.PromoReasonProvenConverter, out[0].ReasonCode)
	assert.Equal(t, "insulated water jug", out[0].Query)
	// Observed CPC 80 marked up 10%.
	assert.Equal(t, int64(88), out[0].SuggestedBidJPY)
}

func TestPromoter_EfficientSpend(t *testing.T) {
	p := NewPromoter(DefaultPromoterConfig())

	// Only 2 conversions but ACOS 0.20 is under 80% of the 0.30 target.
	s := term("steel flask", 1500, 60, 2, 2000, 10000)
	s.BaselineCvr = 0.10 // CVR 0.033 misses the proven-converter bar
	out := p.Run([]domain.SearchTermStats{s})
	assert.Len(t, out, 1)
	assert.Equal(t, domain.PromoReasonEfficientSpend, out[0].ReasonCode)
}

func TestPromoter_SkipsAndFloors(t *testing.T) {
	p := NewPromoter(DefaultPromoterConfig())

	// Already running as the matched keyword.
	s := term("Water  Bottle", 2000, 50, 4, 4000, 12000)
	assert.Empty(t, p.Run([]domain.SearchTermStats{s}))

	// Under both bars.
	assert.Empty(t, p.Run([]domain.SearchTermStats{term("cheap jug", 2000, 50, 1, 4000, 2000)}))

	// Tiny CPC floors at the minimum bid.
	cheap := term("bargain jug", 2000, 100, 5, 300, 9000)
	out := p.Run([]domain.SearchTermStats{cheap})
	assert.Len(t, out, 1)
	assert.Equal(t, int64(10), out[0].SuggestedBidJPY)
}
