package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelink/internal/types"
)

func TestContext_RecordIntent(t *testing.T) {
	c := New()
	c.RecordIntent("open_app", "open notes")

	assert.Equal(t, "open_app", c.LastIntent())
	assert.Equal(t, 1, c.HistoryLen())
	assert.Equal(t, "open notes", c.History()[0].RawText)
}

func TestContext_HistoryBounded(t *testing.T) {
	c := New()
	for i := 0; i < DefaultHistoryLimit+25; i++ {
		c.RecordIntent("open_app", fmt.Sprintf("utterance %d", i))
	}

	require.Equal(t, DefaultHistoryLimit, c.HistoryLen())
	// Oldest entries evicted: the first surviving entry is #25.
	assert.Equal(t, "utterance 25", c.History()[0].RawText)
}

func TestContext_PendingStatesAreExclusive(t *testing.T) {
	c := New()
	plan := types.Plan{types.NewStep("send_email", nil, "Send email")}

	c.SetPendingPlan(plan)
	assert.Equal(t, StateAwaitingConfirmation, c.State())
	assert.NotNil(t, c.PendingPlan())
	assert.Nil(t, c.PendingTicket())

	// A clarification ticket supersedes the pending plan; both can never be
	// set at once.
	c.SetPendingTicket(types.ClarificationTicket{IntentName: "send_text", Prompt: "Who?"})
	assert.Equal(t, StateAwaitingClarification, c.State())
	assert.Nil(t, c.PendingPlan())
	require.NotNil(t, c.PendingTicket())
	assert.Equal(t, "Who?", c.PendingTicket().Prompt)

	c.ClearPending()
	assert.Equal(t, StateIdle, c.State())
	assert.Nil(t, c.PendingPlan())
	assert.Nil(t, c.PendingTicket())
}

func TestContext_EmptyPlanDoesNotSuspend(t *testing.T) {
	c := New()
	c.SetPendingPlan(nil)
	assert.Equal(t, StateIdle, c.State())
}

func TestContext_Snapshot(t *testing.T) {
	c := New()
	c.RecordIntent("open_app", "open notes")
	c.SetLastApp("Notes")
	c.SetPendingTicket(types.ClarificationTicket{IntentName: "send_text", Prompt: "Who should receive this message?"})

	snap := c.Snapshot()
	assert.Equal(t, "open_app", snap.LastIntent)
	assert.Equal(t, "Notes", snap.LastApp)
	assert.Equal(t, 1, snap.HistoryCount)
	assert.False(t, snap.PendingConfirmation)
	assert.True(t, snap.PendingClarification)
	assert.Equal(t, "Who should receive this message?", snap.ClarificationPrompt)
}

func TestContext_SetLastAppIgnoresEmpty(t *testing.T) {
	c := New()
	c.SetLastApp("Notes")
	c.SetLastApp("")
	assert.Equal(t, "Notes", c.LastApp())
}

func TestContext_BrowsingHistoryBounded(t *testing.T) {
	c := New()
	for i := 0; i < browsingLimit+10; i++ {
		c.AddBrowsingEntry(fmt.Sprintf("https://example.com/%d", i), "")
	}
	got := c.BrowsingHistory()
	require.Len(t, got, browsingLimit)
	assert.Equal(t, "https://example.com/10", got[0].URL)
}
