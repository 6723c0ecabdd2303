package negative

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harunaga/adpilot/internal/domain"
)

func TestTagger_LayerPriority(t *testing.T) {
	tg := NewTagger(DefaultIntentTaggerConfig())

	tests := []struct {
		query string
		want  domain.IntentTag
	}{
		{"water bottle for kids", domain.IntentChild},
		{"kids safe water bottle", domain.IntentChild}, // child beats concern
		{"mens water bottle", domain.IntentAdult},
		{"bpa free bottle", domain.IntentConcern},
		{"water bottle vs flask", domain.IntentInfo},
		{"water bottle", domain.IntentGeneric},
		{"子供 水筒", domain.IntentChild},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tg.Tag(tt.query), tt.query)
	}
}

func TestTagger_ClusterKeyNormalizes(t *testing.T) {
	tg := NewTagger(DefaultIntentTaggerConfig())

	a := tg.ClusterKey("  Water   Bottle ")
	b := tg.ClusterKey("water bottle")
	assert.Equal(t, a, b)
	assert.Equal(t, "water bottle::generic", a)
}
