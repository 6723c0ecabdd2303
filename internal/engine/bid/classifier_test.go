package bid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harunaga/adpilot/internal/domain"
)

func TestClassify_NormalModeThresholds(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name   string
		ratio  float64
		want   domain.Action
	}{
		{"far under target", 0.4, domain.ActionStrongUp},
		{"under target", 0.7, domain.ActionMildUp},
		{"near target", 1.0, domain.ActionKeep},
		{"over target", 1.3, domain.ActionMildDown},
		{"far over target", 1.8, domain.ActionStrongDown},
		{"way over target", 2.5, domain.ActionStop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, _ := Classify(cfg, ClassifyInput{
				AcosActual: tt.ratio * 0.25,
				AcosTarget: 0.25,
				Clicks:     50,
				Phase:      domain.PhaseNormal,
				BrandType:  domain.BrandTypeGeneric,
				Role:       domain.RoleSupport,
				Mode:       domain.ModeNormal,
			})
			assert.Equal(t, tt.want, action)
		})
	}
}

func TestClassify_InvestModeNeverStops(t *testing.T) {
	cfg := DefaultConfig()
	action, reason := Classify(cfg, ClassifyInput{
		AcosActual: 1.0, AcosTarget: 0.25, Clicks: 200,
		Phase: domain.PhaseNormal, Role: domain.RoleCore,
		InvestMode: true, Mode: domain.ModeNormal,
	})
	assert.Equal(t, domain.ActionStrongDown, action)
	assert.Equal(t, domain.BidReasonAcosFarOverTarget, reason)
}

func TestClassify_DataStarvation(t *testing.T) {
	cfg := DefaultConfig()

	action, reason := Classify(cfg, ClassifyInput{
		AcosActual: 0.5, AcosTarget: 0.25, Clicks: 3,
		Phase: domain.PhaseNormal, Mode: domain.ModeNormal,
	})
	assert.Equal(t, domain.ActionKeep, action)
	assert.Equal(t, domain.BidReasonInsufficientClicks, reason)

	action, _ = Classify(cfg, ClassifyInput{
		AcosActual: 0.5, AcosTarget: 0.25, Clicks: 3,
		Phase: domain.PhaseNormal, InvestMode: true, Mode: domain.ModeNormal,
	})
	assert.Equal(t, domain.ActionMildUp, action, "invest mode probes up on thin data")
}

func TestClassify_BrandOwnCollapsesHardDowns(t *testing.T) {
	cfg := DefaultConfig()
	action, reason := Classify(cfg, ClassifyInput{
		AcosActual: 0.625, AcosTarget: 0.25, Clicks: 80, // ratio 2.5 -> STOP raw
		Phase: domain.PhaseNormal, Role: domain.RoleBrandOwn, Mode: domain.ModeNormal,
	})
	assert.Equal(t, domain.ActionMildDown, action)
	assert.Equal(t, domain.BidReasonBrandProtected, reason)
}

func TestClassify_FreezePhaseForcesKeep(t *testing.T) {
	cfg := DefaultConfig()
	action, reason := Classify(cfg, ClassifyInput{
		AcosActual: 0.10, AcosTarget: 0.25, Clicks: 50,
		Phase: domain.PhaseSFreeze, Mode: domain.ModeSMode,
	})
	assert.Equal(t, domain.ActionKeep, action)
	assert.Equal(t, domain.BidReasonFreezePhase, reason)
}

func TestClassify_ZeroTargetReadsFarOver(t *testing.T) {
	cfg := DefaultConfig()
	action, _ := Classify(cfg, ClassifyInput{
		AcosActual: 0.3, AcosTarget: 0, Clicks: 100,
		Phase: domain.PhaseNormal, Mode: domain.ModeNormal,
	})
	assert.Equal(t, domain.ActionStop, action)
}
