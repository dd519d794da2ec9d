package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newTestRedisStore starts an in-process Redis and returns a store bound to it.
func newTestRedisStore(t *testing.T) (*RedisManifestStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisManifestStore(client, nil)

	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	return store, mr
}
