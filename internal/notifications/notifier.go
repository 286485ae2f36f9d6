// Package notifications delivers lifecycle notifications to donors,
// requesters and facilities over mobile push and an in-app websocket channel.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"jeevandhara/internal/models"
	"jeevandhara/internal/observability"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "notifications:"

// Notifier publishes in-app notifications into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client turns publishing into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Envelope is the JSON frame written to websocket clients.
type Envelope struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Publish sends msg to the recipient's channel.
func (n *Notifier) Publish(ctx context.Context, to Recipient, msg Message) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(Envelope{
		Type:      msg.Event(),
		Title:     msg.Title,
		Body:      msg.Body,
		Data:      msg.Data,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.rdb.Publish(ctx, Channel(to), payload).Err()
}

// StartPatternSubscriber subscribes to `notifications:*` and calls onMessage
// for each incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, channelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// Channel derives the Redis channel name for a recipient.
func Channel(to Recipient) string {
	return channelPrefix + string(to.Kind) + ":" + strconv.FormatUint(uint64(to.ID), 10)
}

// ParseChannel is the inverse of Channel.
func ParseChannel(channel string) (Recipient, bool) {
	rest, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok {
		return Recipient{}, false
	}
	kind, rawID, ok := strings.Cut(rest, ":")
	if !ok || !models.UserKind(kind).Valid() {
		return Recipient{}, false
	}
	v, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || v == 0 {
		return Recipient{}, false
	}
	return Recipient{Kind: models.UserKind(kind), ID: uint(v)}, true
}
