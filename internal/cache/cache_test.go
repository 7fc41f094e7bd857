package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGetExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New(true, time.Minute)
	c.now = func() time.Time { return now }

	etag := c.Set("teams", []byte(`[]`))
	data, got, ok := c.Get("teams")
	require.True(t, ok)
	assert.Equal(t, []byte(`[]`), data)
	assert.Equal(t, etag, got)

	now = now.Add(2 * time.Minute)
	_, _, ok = c.Get("teams")
	assert.False(t, ok)
}

func TestCache_Disabled(t *testing.T) {
	c := New(false, time.Minute)
	etag := c.Set("teams", []byte(`[]`))
	assert.Equal(t, ComputeETag([]byte(`[]`)), etag)
	_, _, ok := c.Get("teams")
	assert.False(t, ok)
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := New(true, time.Minute)
	c.Set("stats:player:1", []byte(`1`))
	c.Set("stats:game:2", []byte(`2`))
	c.Set("teams", []byte(`3`))

	assert.Equal(t, 2, c.InvalidatePrefix("stats:"))
	_, _, ok := c.Get("teams")
	assert.True(t, ok)
}

func TestCheckETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("x"))
	assert.True(t, CheckETagMatch(etag, etag))
	assert.True(t, CheckETagMatch(`W/"other", `+etag, etag))
	assert.True(t, CheckETagMatch("*", etag))
	assert.False(t, CheckETagMatch("", etag))
	assert.False(t, CheckETagMatch(`W/"other"`, etag))
}
