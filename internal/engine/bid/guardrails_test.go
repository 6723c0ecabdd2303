package bid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harunaga/adpilot/internal/domain"
)

func TestResolveGuardrails_CoreLaunchHard(t *testing.T) {
	cfg := DefaultConfig().Guardrails
	g := ResolveGuardrails(cfg, GuardrailInput{
		Role:  domain.RoleCore,
		Stage: domain.StageLaunchHard,
		Phase: domain.PhaseNormal,
	})
	assert.False(t, g.AllowStop)
	assert.False(t, g.AllowStrongDown)
	assert.InDelta(t, cfg.CoreLaunchHardDownStep, g.MaxDownStepRatio, 1e-9)
}

func TestResolveGuardrails_BreachRelaxesDownButNotBrandOwnStop(t *testing.T) {
	cfg := DefaultConfig().Guardrails

	g := ResolveGuardrails(cfg, GuardrailInput{
		Role:       domain.RoleSupport,
		Stage:      domain.StageGrow,
		Phase:      domain.PhaseNormal,
		LossBudget: domain.InvestBreach,
	})
	assert.True(t, g.AllowStop)
	assert.InDelta(t, cfg.BreachDownStep, g.MaxDownStepRatio, 1e-9)

	g = ResolveGuardrails(cfg, GuardrailInput{
		Role:       domain.RoleBrandOwn,
		Stage:      domain.StageGrow,
		Phase:      domain.PhaseNormal,
		LossBudget: domain.InvestBreach,
	})
	assert.False(t, g.AllowStop, "BRAND_OWN never stops, breach or not")
}

func TestResolveGuardrails_PresaleFreezesDown(t *testing.T) {
	cfg := DefaultConfig().Guardrails
	g := ResolveGuardrails(cfg, GuardrailInput{
		Role:  domain.RoleSupport,
		Stage: domain.StageGrow,
		Phase: domain.PhaseSPre1,
	})
	assert.False(t, g.AllowStop)
	assert.False(t, g.AllowStrongDown)
	assert.Zero(t, g.MaxDownStepRatio)
}

func TestRecheck_FallbackChain(t *testing.T) {
	cfg := DefaultConfig().Guardrails
	in := GuardrailInput{
		Role:   domain.RoleSupport,
		Stage:  domain.StageGrow,
		Phase:  domain.PhaseNormal,
		Clicks: 25, // below stop gate (30), above strong-down gate (20)
	}
	g := ResolveGuardrails(cfg, in)

	action, fell := g.Recheck(domain.ActionStop, in)
	assert.Equal(t, domain.ActionStrongDown, action)
	assert.True(t, fell)
}

func TestRecheck_PresaleDownFallsToKeep(t *testing.T) {
	cfg := DefaultConfig().Guardrails
	in := GuardrailInput{
		Role:   domain.RoleSupport,
		Stage:  domain.StageGrow,
		Phase:  domain.PhaseSPre2,
		Clicks: 500,
	}
	g := ResolveGuardrails(cfg, in)

	action, fell := g.Recheck(domain.ActionStrongDown, in)
	assert.Equal(t, domain.ActionKeep, action)
	assert.True(t, fell)
}

func TestRecheck_OverspendGateBlocksStop(t *testing.T) {
	cfg := DefaultConfig().Guardrails
	in := GuardrailInput{
		Role:      domain.RoleSupport,
		Stage:     domain.StageGrow,
		Phase:     domain.PhaseNormal,
		Clicks:    100,
		SpendJPY:  500,
		TargetCPA: 1000, // stop needs spend >= 2x target CPA
	}
	g := ResolveGuardrails(cfg, in)

	action, fell := g.Recheck(domain.ActionStop, in)
	assert.NotEqual(t, domain.ActionStop, action)
	assert.True(t, fell)
}
