package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisEnv names the URL of the Redis used by integration tests.
const RedisEnv = "TEST_REDIS_URL"

// NewRedis returns a client on the test Redis and a key namespace unique to
// the test, so parallel tests sharing one server never see each other's keys.
// Keys under the namespace are removed when the test ends.
func NewRedis(t *testing.T) (*redis.Client, string) {
	t.Helper()

	opts, err := redis.ParseURL(requireEnv(t, RedisEnv))
	if err != nil {
		t.Fatalf("testutil.NewRedis: %v", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Fatalf("testutil.NewRedis: ping: %v", err)
	}

	ns := "rtg:test:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, ns+"*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
		client.Close()
	})
	return client, ns
}
