package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harunaga/adpilot/internal/domain"
)

func placementCampaign() domain.BudgetMetrics {
	c := campaign()
	c.TosPlacementPercent = 30
	c.Orders30d = 20
	return c
}

func TestPlacement_RaiseOnEfficiency(t *testing.T) {
	e := NewPlacementEngine(DefaultPlacementConfig())

	c := placementCampaign()
	c.Acos30d = 0.15 // target 0.25, under 80%
	rec := e.Evaluate(c)
	assert.Equal(t, "RAISE", rec.Action)
	assert.InDelta(t, 40.0, rec.NewPercent, 1e-9)
}

func TestPlacement_LowerOnInefficiency(t *testing.T) {
	e := NewPlacementEngine(DefaultPlacementConfig())

	c := placementCampaign()
	c.Acos30d = 0.40
	rec := e.Evaluate(c)
	assert.Equal(t, "LOWER", rec.Action)
	assert.InDelta(t, 20.0, rec.NewPercent, 1e-9)
}

func TestPlacement_GatesAndPins(t *testing.T) {
	e := NewPlacementEngine(DefaultPlacementConfig())

	// Data gate.
	c := placementCampaign()
	c.Orders30d = 2
	c.Acos30d = 0.15
	rec := e.Evaluate(c)
	assert.Equal(t, "KEEP", rec.Action)

	// Pinned at the maximum.
	c = placementCampaign()
	c.TosPlacementPercent = 100
	c.Acos30d = 0.15
	rec = e.Evaluate(c)
	assert.Equal(t, "KEEP", rec.Action)
	assert.InDelta(t, 100.0, rec.NewPercent, 1e-9)

	// Pinned at zero.
	c = placementCampaign()
	c.TosPlacementPercent = 0
	c.Acos30d = 0.50
	rec = e.Evaluate(c)
	assert.Equal(t, "KEEP", rec.Action)

	// Neutral band.
	c = placementCampaign()
	c.Acos30d = 0.25
	rec = e.Evaluate(c)
	assert.Equal(t, "KEEP", rec.Action)
	assert.InDelta(t, 30.0, rec.NewPercent, 1e-9)
}
