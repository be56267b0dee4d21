package registry

import (
	"Mallchat/internal/pkg/redis"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (Registry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	redis.Rdb = goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redis.Rdb.Close() })
	return NewRedisRegistry(time.Minute), mr
}

func TestBind_LastWriterWins(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Bind(ctx, 7, "session-a"))
	require.NoError(t, reg.Bind(ctx, 7, "session-b"))

	handle, err := reg.Lookup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "session-b", handle)
}

func TestBind_NoExpiry(t *testing.T) {
	reg, mr := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Bind(ctx, 1, "h"))
	mr.FastForward(24 * time.Hour)

	handle, err := reg.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "h", handle)
}

func TestLookup_MissIsEmpty(t *testing.T) {
	reg, _ := newTestRegistry(t)

	handle, err := reg.Lookup(context.Background(), 404)
	require.NoError(t, err)
	assert.Empty(t, handle)
}

func TestUnbindHandle_KeepsNewerBinding(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Bind(ctx, 3, "old"))
	require.NoError(t, reg.Bind(ctx, 3, "new"))

	removed, err := reg.UnbindHandle(ctx, 3, "old")
	require.NoError(t, err)
	assert.False(t, removed)

	handle, _ := reg.Lookup(ctx, 3)
	assert.Equal(t, "new", handle)

	removed, err = reg.UnbindHandle(ctx, 3, "new")
	require.NoError(t, err)
	assert.True(t, removed)

	handle, _ = reg.Lookup(ctx, 3)
	assert.Empty(t, handle)
}

func TestLoginCode_ConsumedOnceAndExpires(t *testing.T) {
	reg, mr := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.PutLoginCode(ctx, "code-1", "handle-1"))

	peek, err := reg.PeekLoginCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "handle-1", peek)

	took, err := reg.TakeLoginCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "handle-1", took)

	took, err = reg.TakeLoginCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Empty(t, took)

	require.NoError(t, reg.PutLoginCode(ctx, "code-2", "handle-2"))
	mr.FastForward(2 * time.Minute)

	took, err = reg.TakeLoginCode(ctx, "code-2")
	require.NoError(t, err)
	assert.Empty(t, took)
}
