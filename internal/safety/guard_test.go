package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pixelink/internal/types"
)

func step(action string) types.ActionStep {
	return types.NewStep(action, nil, "")
}

func TestGuard_DefaultProfileAllowsPlan(t *testing.T) {
	g := NewGuard()

	res := g.ValidatePlan(types.Plan{step("open_app"), step("wait"), step("type_text")})
	assert.True(t, res.Allowed)
	assert.Empty(t, res.Reason)
}

func TestGuard_DenyListRejectsWholePlan(t *testing.T) {
	g := NewGuard()

	res := g.ValidatePlan(types.Plan{step("open_app"), step("delete_file"), step("wait")})
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "delete_file")
}

func TestGuard_DenyListSurvivesProfileReplacement(t *testing.T) {
	g := NewGuard()
	g.SetAllowedActions(map[string]bool{"delete_file": true, "open_app": true})

	res := g.ValidatePlan(types.Plan{step("delete_file")})
	assert.False(t, res.Allowed, "the deny-list is not overridable")
	assert.Contains(t, res.Reason, "delete_file")
}

func TestGuard_DisallowedActionRejects(t *testing.T) {
	g := NewGuard()
	g.SetAllowedActions(map[string]bool{"type_text": true})

	res := g.ValidatePlan(types.Plan{step("type_text"), step("open_app")})
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "open_app")
}

func TestGuard_EmptyProfileLeavesAllowListUnchanged(t *testing.T) {
	g := NewGuard()

	g.SetAllowedActions(nil)
	assert.True(t, g.ValidatePlan(types.Plan{step("open_app")}).Allowed)

	g.SetAllowedActions(map[string]bool{})
	assert.True(t, g.ValidatePlan(types.Plan{step("open_app")}).Allowed)

	// All-false profile enables nothing, so it is also a no-op.
	g.SetAllowedActions(map[string]bool{"open_app": false})
	assert.True(t, g.ValidatePlan(types.Plan{step("open_app")}).Allowed)
}

func TestGuard_RequiresConfirmation(t *testing.T) {
	g := NewGuard()

	assert.True(t, g.RequiresConfirmation("send_email"))
	assert.True(t, g.RequiresConfirmation("reply_email"))
	assert.True(t, g.RequiresConfirmation("autofill_login"))
	assert.False(t, g.RequiresConfirmation("open_app"))
	assert.False(t, g.RequiresConfirmation("type_text"))
}
