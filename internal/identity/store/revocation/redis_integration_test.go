//go:build integration

package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotbox/pkg/testutil/containers"
)

func TestRedisTRL(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	trl := NewRedisTRL(rc.Client)

	t.Run("revoked jti round trips", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, trl.Revoke(ctx, "jti-redis", time.Minute))

		revoked, err := trl.IsRevoked(ctx, "jti-redis")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("key expires with the token", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, trl.Revoke(ctx, "jti-expiring", 100*time.Millisecond))
		time.Sleep(300 * time.Millisecond)

		revoked, err := trl.IsRevoked(ctx, "jti-expiring")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("unknown jti is not revoked", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		revoked, err := trl.IsRevoked(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
