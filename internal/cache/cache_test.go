package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

func TestAside_CachesAfterFirstFetch(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	var calls int32
	fetch := func(context.Context) ([]row, error) {
		atomic.AddInt32(&calls, 1)
		return []row{{ID: 1, Name: "City Blood Bank"}}, nil
	}

	got, err := Aside(ctx, c, KeyBloodBanks, ListTTL, fetch)
	require.NoError(t, err)
	assert.Equal(t, "City Blood Bank", got[0].Name)

	got, err = Aside(ctx, c, KeyBloodBanks, ListTTL, fetch)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	assert.True(t, mr.Exists(KeyBloodBanks))
	assert.Equal(t, ListTTL, mr.TTL(KeyBloodBanks))
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("db down")

	_, err := Aside(context.Background(), c, KeyDonors, ListTTL, func(context.Context) ([]row, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(KeyDonors))
}

func TestAside_NilClientAlwaysFetches(t *testing.T) {
	c := New(nil)
	var calls int
	for i := 0; i < 3; i++ {
		_, err := Aside(context.Background(), c, KeyHospitals, ListTTL, func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
	c.Invalidate(context.Background(), KeyHospitals)
}

func TestAside_ConcurrentMissesShareFetch(t *testing.T) {
	c, _ := newTestCache(t)
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Aside(context.Background(), c, KeyDonors, ListTTL, func(context.Context) ([]row, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return []row{{ID: 7}}, nil
			})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.SetJSON(ctx, KeyDonors, []row{{ID: 1}}, time.Minute))
	require.NoError(t, c.SetJSON(ctx, KeyHospitals, []row{{ID: 2}}, time.Minute))

	c.Invalidate(ctx, KeyDonors, KeyHospitals)
	assert.False(t, mr.Exists(KeyDonors))
	assert.False(t, mr.Exists(KeyHospitals))

	var out []row
	found, err := c.GetJSON(ctx, KeyDonors, &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Options().DB)

	c, err = NewClient("localhost:6380")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", c.Options().Addr)

	_, err = NewClient("redis://localhost:6379/notanumber")
	assert.Error(t, err)
}

func TestConnect_EmptyAddr(t *testing.T) {
	assert.Nil(t, Connect(context.Background(), ""))
}
