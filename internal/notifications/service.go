package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"jeevandhara/internal/observability"
)

// TokenCleaner forgets a device token wherever it is stored.
type TokenCleaner interface {
	ClearToken(ctx context.Context, token string) error
}

// Service combines the dispatcher with the delivery channels. Push is
// optional: a nil Pusher disables it for the lifetime of the service.
type Service struct {
	dispatcher *Dispatcher
	pusher     Pusher
	notifier   *Notifier
	cleaner    TokenCleaner
}

// NewService wires the delivery channels. Any argument but the dispatcher
// may be nil.
func NewService(d *Dispatcher, p Pusher, n *Notifier, c TokenCleaner) *Service {
	if n == nil {
		n = NewNotifier(nil)
	}
	return &Service{dispatcher: d, pusher: p, notifier: n, cleaner: c}
}

// PushEnabled reports whether a push provider is configured.
func (s *Service) PushEnabled() bool { return s.pusher != nil }

// SetTokenCleaner installs the cleaner after construction, for wiring
// orders where the directory is built later.
func (s *Service) SetTokenCleaner(c TokenCleaner) { s.cleaner = c }

// Enqueue runs fn on the dispatcher.
func (s *Service) Enqueue(name string, fn func(ctx context.Context) error) bool {
	return s.dispatcher.Enqueue(name, fn)
}

// Errors exposes the dispatcher failure log.
func (s *Service) Errors() []TaskError {
	return s.dispatcher.Errors()
}

// Shutdown drains pending notifications.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.dispatcher.Shutdown(ctx)
}

// Deliver sends msg to every target over push (when the target has a
// token) and in-app. Invalid tokens are cleared. Errors from individual
// channels are joined; delivery to the remaining targets continues.
func (s *Service) Deliver(ctx context.Context, msg Message, targets ...Target) error {
	if len(targets) == 0 {
		return nil
	}
	event := msg.Event()
	var errs []error

	if s.pusher != nil {
		if err := s.push(ctx, msg, targets); err != nil {
			errs = append(errs, err)
		}
	} else {
		observability.NotificationsSent.WithLabelValues(event, "push", "disabled").Add(float64(len(targets)))
	}

	for _, t := range targets {
		if err := s.notifier.Publish(ctx, t.Recipient, msg); err != nil {
			observability.NotificationsSent.WithLabelValues(event, "inapp", "failed").Inc()
			errs = append(errs, fmt.Errorf("publish %s: %w", Channel(t.Recipient), err))
			continue
		}
		observability.NotificationsSent.WithLabelValues(event, "inapp", "sent").Inc()
	}
	return errors.Join(errs...)
}

func (s *Service) push(ctx context.Context, msg Message, targets []Target) error {
	event := msg.Event()
	tokens := make([]string, 0, len(targets))
	for _, t := range targets {
		tokens = append(tokens, t.Token)
	}
	tokens = compactTokens(tokens)
	switch len(tokens) {
	case 0:
		return nil
	case 1:
		err := s.pusher.Send(ctx, tokens[0], msg)
		if err == nil {
			observability.NotificationsSent.WithLabelValues(event, "push", "sent").Inc()
			return nil
		}
		observability.NotificationsSent.WithLabelValues(event, "push", "failed").Inc()
		if isInvalidToken(err) {
			s.clear(ctx, tokens)
			return nil
		}
		return err
	}

	res, err := s.pusher.SendMulticast(ctx, tokens, msg)
	observability.NotificationsSent.WithLabelValues(event, "push", "sent").Add(float64(res.Success))
	observability.NotificationsSent.WithLabelValues(event, "push", "failed").Add(float64(res.Failure))
	observability.GlobalLogger.InfoContext(ctx, "push batch sent",
		slog.String("event", event),
		slog.Int("sent", res.Success),
		slog.Int("failed", res.Failure),
	)
	s.clear(ctx, res.InvalidTokens)
	return err
}

func (s *Service) clear(ctx context.Context, tokens []string) {
	if s.cleaner == nil {
		return
	}
	for _, token := range tokens {
		if err := s.cleaner.ClearToken(ctx, token); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "failed to clear invalid push token",
				slog.String("error", err.Error()),
			)
		}
	}
}
