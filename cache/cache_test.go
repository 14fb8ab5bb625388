package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(context.Background(), mr.Addr(), WithTTL(time.Minute))
	require.True(t, c.Enabled())
	return c, mr
}

func TestQueryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	_, ok := c.GetQuery(ctx, "how does auth work", 5, "proj")
	assert.False(t, ok)

	assert.True(t, c.PutQuery(ctx, "how does auth work", 5, "proj", `{"answer":"jwt"}`))

	val, ok := c.GetQuery(ctx, "how does auth work", 5, "proj")
	require.True(t, ok)
	assert.Equal(t, `{"answer":"jwt"}`, val)

	// Different limit or collection is a different fingerprint.
	_, ok = c.GetQuery(ctx, "how does auth work", 10, "proj")
	assert.False(t, ok)
	_, ok = c.GetQuery(ctx, "how does auth work", 5, "other")
	assert.False(t, ok)
}

func TestQueryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	c.PutQuery(ctx, "q", 5, "proj", "v")
	mr.FastForward(2 * time.Minute)

	_, ok := c.GetQuery(ctx, "q", 5, "proj")
	assert.False(t, ok)
}

func TestQueryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	c.PutQuery(ctx, "q", 5, "proj", "v")
	c.DeleteQuery(ctx, "q", 5, "proj")

	_, ok := c.GetQuery(ctx, "q", 5, "proj")
	assert.False(t, ok)
}

func TestDisabledCacheDegrades(t *testing.T) {
	ctx := context.Background()
	// Nothing listens here; the init ping fails and the cache disables.
	c := New(ctx, "127.0.0.1:1")
	assert.False(t, c.Enabled())

	assert.False(t, c.PutQuery(ctx, "q", 5, "proj", "v"))
	_, ok := c.GetQuery(ctx, "q", 5, "proj")
	assert.False(t, ok)

	ing := c.Ingestion("proj")
	assert.False(t, ing.PutHash(ctx, "node", "hash"))
	_, ok = ing.GetHash(ctx, "node")
	assert.False(t, ok)

	assert.NoError(t, c.ClearNamespace(ctx, "proj"))
}

func TestIngestionCacheNamespaces(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	a := c.Ingestion("proj_a")
	b := c.Ingestion("proj_b")

	assert.True(t, a.PutHash(ctx, "n1", "hash1"))
	assert.True(t, b.PutHash(ctx, "n1", "hash2"))

	got, ok := a.GetHash(ctx, "n1")
	require.True(t, ok)
	assert.Equal(t, "hash1", got)

	got, ok = b.GetHash(ctx, "n1")
	require.True(t, ok)
	assert.Equal(t, "hash2", got)

	require.NoError(t, c.ClearNamespace(ctx, "proj_a"))
	_, ok = a.GetHash(ctx, "n1")
	assert.False(t, ok)
	_, ok = b.GetHash(ctx, "n1")
	assert.True(t, ok)
}
