package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"jeevandhara/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_PublishWithoutRedis(t *testing.T) {
	n := NewNotifier(nil)
	err := n.Publish(context.Background(), Recipient{Kind: models.KindDonor, ID: 1}, Message{Title: "x"})
	assert.NoError(t, err)
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))
}

func TestChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		to       Recipient
		expected string
	}{
		{Recipient{Kind: models.KindDonor, ID: 1}, "notifications:donor:1"},
		{Recipient{Kind: models.KindBloodBank, ID: 42}, "notifications:blood_bank:42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Channel(tt.to))
		back, ok := ParseChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.to, back)
	}
}

func TestParseChannel_Rejects(t *testing.T) {
	t.Parallel()
	for _, ch := range []string{
		"notifications:admin:1",
		"notifications:donor:abc",
		"notifications:donor:0",
		"notifications:donor",
		"chat:conv:1",
	} {
		_, ok := ParseChannel(ch)
		assert.False(t, ok, ch)
	}
}

func TestNotifier_PublishReachesSubscriber(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type delivery struct{ channel, payload string }
	got := make(chan delivery, 1)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		got <- delivery{channel, payload}
	}))

	to := Recipient{Kind: models.KindRequester, ID: 7}
	msg := RequestFulfilledMessage(&models.BloodRequest{ID: 3, BloodGroup: models.ONegative})
	require.NoError(t, n.Publish(context.Background(), to, msg))

	select {
	case d := <-got:
		assert.Equal(t, "notifications:requester:7", d.channel)
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(d.payload), &env))
		assert.Equal(t, EventRequestFulfilled, env.Type)
		assert.Equal(t, "🎉 Request Fulfilled!", env.Title)
		assert.Equal(t, "3", env.Data["requestId"])
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestNotifier_SubscriberSurvivesPanic(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 2)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(string, string) {
		calls <- struct{}{}
		panic("boom")
	}))

	to := Recipient{Kind: models.KindDonor, ID: 1}
	require.NoError(t, n.Publish(context.Background(), to, Message{}))
	require.NoError(t, n.Publish(context.Background(), to, Message{}))

	assert.Eventually(t, func() bool { return len(calls) == 2 }, time.Second, 10*time.Millisecond)
}
