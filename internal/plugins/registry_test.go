package plugins

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRegisterAndInvoke(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := NewRegistry(nil)
	require.NoError(t, reg.Register("echo", func(_ context.Context, args map[string]any) (any, error) {
		return args["value"], nil
	}))

	out, err := reg.Invoke(context.Background(), "echo", map[string]any{"value": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestInvokeUnknownTool(t *testing.T) {
	reg := NewRegistry(nil)
	_, err := reg.Invoke(context.Background(), "nope", nil)
	assert.Error(t, err)
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry(nil)
	assert.Error(t, reg.Register("", func(context.Context, map[string]any) (any, error) { return nil, nil }))
	assert.Error(t, reg.Register("x", nil))
}

func TestInvokeTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := NewRegistry(nil)
	reg.timeout = 20 * time.Millisecond
	require.NoError(t, reg.Register("slow", func(ctx context.Context, _ map[string]any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	_, err := reg.Invoke(context.Background(), "slow", nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNamesSorted(t *testing.T) {
	reg := NewRegistry(nil)
	store := NewProductivityStore()
	require.NoError(t, RegisterBuiltins(reg, store))

	assert.Equal(t, []string{
		"create_event", "create_note", "create_reminder",
		"get_events", "list_notes", "list_reminders",
	}, reg.Names())
}

func TestBuiltinRemindersRoundTrip(t *testing.T) {
	reg := NewRegistry(nil)
	store := NewProductivityStore()
	require.NoError(t, RegisterBuiltins(reg, store))
	ctx := context.Background()

	_, err := reg.Invoke(ctx, "create_reminder", map[string]any{"name": "buy milk"})
	require.NoError(t, err)
	_, err = reg.Invoke(ctx, "create_reminder", map[string]any{"name": "call mom"})
	require.NoError(t, err)

	out, err := reg.Invoke(ctx, "list_reminders", nil)
	require.NoError(t, err)
	reminders, ok := out.([]Reminder)
	require.True(t, ok)
	require.Len(t, reminders, 2)
	assert.Equal(t, "buy milk", reminders[0].Name)
	assert.Equal(t, "call mom", reminders[1].Name)
}

func TestBuiltinNotesFolderFilter(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, RegisterBuiltins(reg, NewProductivityStore()))
	ctx := context.Background()

	_, err := reg.Invoke(ctx, "create_note", map[string]any{"title": "groceries", "folder_name": "home"})
	require.NoError(t, err)
	_, err = reg.Invoke(ctx, "create_note", map[string]any{"title": "standup"})
	require.NoError(t, err)

	out, err := reg.Invoke(ctx, "list_notes", map[string]any{"folder_name": "home"})
	require.NoError(t, err)
	notes := out.([]Note)
	require.Len(t, notes, 1)
	assert.Equal(t, "groceries", notes[0].Title)
}

func TestBuiltinValidation(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, RegisterBuiltins(reg, NewProductivityStore()))
	ctx := context.Background()

	_, err := reg.Invoke(ctx, "create_reminder", nil)
	assert.Error(t, err)
	_, err = reg.Invoke(ctx, "create_note", map[string]any{})
	assert.Error(t, err)
	_, err = reg.Invoke(ctx, "create_event", map[string]any{"when": "tomorrow"})
	assert.Error(t, err)
}

func TestBuiltinEvents(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, RegisterBuiltins(reg, NewProductivityStore()))
	ctx := context.Background()

	_, err := reg.Invoke(ctx, "create_event", map[string]any{"summary": "dentist", "when": "3pm"})
	require.NoError(t, err)

	out, err := reg.Invoke(ctx, "get_events", nil)
	require.NoError(t, err)
	events := out.([]Event)
	require.Len(t, events, 1)
	assert.Equal(t, "dentist", events[0].Summary)
	assert.Equal(t, "3pm", events[0].When)
}
