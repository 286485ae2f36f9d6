// Package service holds the business rules of the blood-donation backend:
// the request lifecycle, the inventory ledger, facility verification and the
// account directory.
package service

import (
	"context"
	"log/slog"

	"jeevandhara/internal/models"
	"jeevandhara/internal/notifications"
	"jeevandhara/internal/observability"
)

// Notifier schedules best-effort notification work. *notifications.Service
// satisfies it.
type Notifier interface {
	Enqueue(name string, fn func(ctx context.Context) error) bool
	Deliver(ctx context.Context, msg notifications.Message, targets ...notifications.Target) error
}

// Recipients looks up who to notify. *Directory satisfies it.
type Recipients interface {
	DisplayName(ctx context.Context, kind models.UserKind, id uint) string
	Recipient(ctx context.Context, kind models.UserKind, id uint) (notifications.Target, error)
	Targets(ctx context.Context, kind models.UserKind, ids ...uint) ([]notifications.Target, error)
}

// enqueue schedules fn and logs when the dispatcher refuses it. The caller's
// operation never fails because of a notification.
func enqueue(n Notifier, name string, fn func(ctx context.Context) error) {
	if n == nil {
		return
	}
	if !n.Enqueue(name, fn) {
		observability.GlobalLogger.Warn("notification not scheduled", slog.String("task", name))
	}
}

// notifyOne delivers msg to a single account.
func notifyOne(ctx context.Context, n Notifier, r Recipients, kind models.UserKind, id uint, msg notifications.Message) error {
	to, err := r.Recipient(ctx, kind, id)
	if err != nil {
		return err
	}
	return n.Deliver(ctx, msg, to)
}

// emergencyTargets is every hospital and blood bank holding a device token.
func emergencyTargets(ctx context.Context, r Recipients) ([]notifications.Target, error) {
	hospitals, err := r.Targets(ctx, models.KindHospital)
	if err != nil {
		return nil, err
	}
	banks, err := r.Targets(ctx, models.KindBloodBank)
	if err != nil {
		return nil, err
	}
	return append(hospitals, banks...), nil
}

// FlagSet answers whether a named switch is on. *featureflags.Manager
// satisfies it.
type FlagSet interface {
	Enabled(name string, subjectID uint) bool
}

// gatedNotifier skips tasks whose event is switched off.
type gatedNotifier struct {
	Notifier
	flags  FlagSet
	events map[string]string
}

// Gated wraps n so that tasks named after an event in events are skipped
// while the mapped flag is off. Skipped tasks count as scheduled.
func Gated(n Notifier, flags FlagSet, events map[string]string) Notifier {
	if n == nil || flags == nil {
		return n
	}
	return &gatedNotifier{Notifier: n, flags: flags, events: events}
}

func (g *gatedNotifier) Enqueue(name string, fn func(ctx context.Context) error) bool {
	if flag, ok := g.events[name]; ok && !g.flags.Enabled(flag, 0) {
		observability.GlobalLogger.Debug("notification switched off",
			slog.String("task", name),
			slog.String("flag", flag),
		)
		return true
	}
	return g.Notifier.Enqueue(name, fn)
}
