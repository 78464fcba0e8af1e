package resultcache

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func testCache(t *testing.T, cache Cache) {
	t.Helper()
	ctx := context.Background()
	key := Key("AB12CD3456EF7890", "05-03-2025")

	_, hit, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, cache.Set(ctx, key, []byte(`{"status":"complete"}`)))
	value, hit, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, `{"status":"complete"}`, string(value))

	_, hit, err = cache.Get(ctx, Key("AB12CD3456EF7890", "06-03-2025"))
	require.NoError(t, err)
	require.False(t, hit)
}

func TestMemory(t *testing.T) {
	testCache(t, NewMemory(16, time.Minute))
}

func TestMemoryExpires(t *testing.T) {
	cache := NewMemory(16, 20*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "key", []byte("value")))

	require.Eventually(t, func() bool {
		_, hit, _ := cache.Get(ctx, "key")
		return !hit
	}, time.Second, 10*time.Millisecond)
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, Nop{}.Set(ctx, "key", []byte("value")))
	_, hit, err := Nop{}.Get(ctx, "key")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "memcached"})
	require.Error(t, err)
}

func TestRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
	})
	if err != nil {
		t.Skipf("could not start redis: %v", err)
	}
	defer func() {
		err := container.Terminate(ctx)
		if err != nil {
			t.Fatal(err)
		}
	}()

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	cache, err := New(ctx, Config{Backend: "redis", Addr: addr})
	require.NoError(t, err)
	defer cache.(Redis).Close()
	testCache(t, cache)
}
