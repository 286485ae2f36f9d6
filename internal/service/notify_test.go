package service

import (
	"context"
	"testing"

	"jeevandhara/internal/featureflags"
	"jeevandhara/internal/notifications"

	"github.com/stretchr/testify/assert"
)

func TestGated_SkipsSwitchedOffEvents(t *testing.T) {
	t.Parallel()
	inner := &recordingNotifier{}
	n := Gated(inner, featureflags.NewManager("emergency_broadcast=off"), map[string]string{
		notifications.EventEmergency: featureflags.EmergencyBroadcast,
		notifications.EventLowStock:  featureflags.LowStockAlerts,
	})

	ran := map[string]bool{}
	for _, event := range []string{notifications.EventEmergency, notifications.EventLowStock, notifications.EventNewRequest} {
		assert.True(t, n.Enqueue(event, func(context.Context) error {
			ran[event] = true
			return nil
		}))
	}
	assert.False(t, ran[notifications.EventEmergency])
	// Unconfigured flags evaluate off.
	assert.False(t, ran[notifications.EventLowStock])
	assert.True(t, ran[notifications.EventNewRequest])
}

func TestGated_NilFlagsPassThrough(t *testing.T) {
	t.Parallel()
	inner := &recordingNotifier{}
	assert.Same(t, Notifier(inner), Gated(inner, nil, nil))
}
