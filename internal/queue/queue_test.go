package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/ipv4-deal-os/internal/domain"
)

func TestMemoryQueue_FIFOAndTimeout(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(4)

	require.NoError(t, q.Enqueue(ctx, Task{JobID: 1, Type: domain.JobTypeRDAPIngestion}))
	require.NoError(t, q.Enqueue(ctx, Task{JobID: 2, Type: domain.JobTypeRDAPIngestion}))

	first, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.JobID)

	second, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.JobID)

	none, err := q.Dequeue(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, q.Close())
	assert.True(t, eris.Is(q.Enqueue(ctx, Task{JobID: 3}), ErrClosed))
	_, err = q.Dequeue(ctx, time.Second)
	assert.True(t, eris.Is(err, ErrClosed))
}

// TestRedisQueue_RoundTrip runs against a real Redis when TEST_REDIS_URL is set.
func TestRedisQueue_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	key := "dealos:test:" + t.Name()

	q, err := NewRedisQueue(ctx, &RedisConfig{URL: url, Key: key})
	require.NoError(t, err)
	t.Cleanup(func() {
		q.Client().Del(context.Background(), key)
		q.Close()
	})

	require.NoError(t, q.Enqueue(ctx, Task{JobID: 7, Type: domain.JobTypeRDAPIngestion}))
	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.EqualValues(t, 7, got.JobID)
	assert.Equal(t, domain.JobTypeRDAPIngestion, got.Type)
	assert.False(t, got.EnqueuedAt.IsZero())

	empty, err := q.Dequeue(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, empty)

	hb := NewHeartbeat(q.Client(), key+":hb")
	alive, err := hb.Alive(ctx)
	require.NoError(t, err)
	assert.False(t, alive)
	require.NoError(t, hb.Beat(ctx, "worker-1", time.Minute))
	alive, err = hb.Alive(ctx)
	require.NoError(t, err)
	assert.True(t, alive)
	q.Client().Del(ctx, key+":hb")
}

func TestNewRedisQueue_BadURL(t *testing.T) {
	_, err := NewRedisQueue(context.Background(), &RedisConfig{URL: "not-a-url", Key: "k"})
	assert.Error(t, err)
}

func TestDial(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"invalid url", "not-a-url", true},
		{"unknown scheme", "http://cache:6379", true},
		{"unreachable server", "redis://127.0.0.1:1/0", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Dial(&RedisConfig{URL: tc.url, Key: "k"})
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, q)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { q.Close() })
			assert.NotNil(t, q.Client())
		})
	}
}

func TestDial_ServerDownFailsOnUse(t *testing.T) {
	q, err := Dial(&RedisConfig{URL: "redis://127.0.0.1:1/0", Key: "k"})
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, q.Ping(ctx))
	assert.Error(t, q.Enqueue(ctx, Task{JobID: 1, Type: domain.JobTypeRDAPIngestion}))

	_, err = NewRedisQueue(ctx, &RedisConfig{URL: "redis://127.0.0.1:1/0", Key: "k"})
	assert.Error(t, err)
}
