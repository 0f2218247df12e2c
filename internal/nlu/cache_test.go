package nlu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelink/internal/types"
)

func cachedIntent(name string) types.Intent {
	return types.Intent{Name: name, Entities: map[string]any{"app": "notes"}, Confidence: 0.9}
}

func TestResultCache_GetReturnsDeepCopy(t *testing.T) {
	c := NewResultCache(4, time.Minute)
	c.Set("k", cachedIntent("open_app"))

	got, ok := c.Get("k")
	require.True(t, ok)
	got.Entities["app"] = "mail"

	again, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "notes", again.Entities["app"])
}

func TestResultCache_TTLExpiry(t *testing.T) {
	c := NewResultCache(4, 10*time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", cachedIntent("open_app"))

	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(11 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "expired entry must not be served")
	assert.Equal(t, 0, c.Len(), "expired entry dropped on read")
}

func TestResultCache_EvictsOldestOverCapacity(t *testing.T) {
	c := NewResultCache(2, time.Minute)
	c.Set("a", cachedIntent("one"))
	c.Set("b", cachedIntent("two"))
	c.Set("c", cachedIntent("three"))

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestResultCache_GetRefreshesRecency(t *testing.T) {
	c := NewResultCache(2, time.Minute)
	c.Set("a", cachedIntent("one"))
	c.Set("b", cachedIntent("two"))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", cachedIntent("three"))

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestCacheKey_IncludesDialogueContext(t *testing.T) {
	assert.NotEqual(t,
		CacheKey("open notes", "send_text"),
		CacheKey("open notes", ""),
		"identical text in a different dialogue context must not be conflated")

	assert.Equal(t,
		CacheKey("  Open   NOTES ", "x"),
		CacheKey("open notes", "x"),
		"key is built from normalized text")
}
