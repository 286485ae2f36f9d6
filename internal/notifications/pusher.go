package notifications

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned by a Pusher when the provider reports the
// device token as unknown or unregistered.
var ErrInvalidToken = errors.New("push token is not registered")

// BatchResult summarizes a multicast send.
type BatchResult struct {
	Success       int
	Failure       int
	InvalidTokens []string
}

// Pusher delivers a message to mobile devices.
type Pusher interface {
	Send(ctx context.Context, token string, msg Message) error
	SendMulticast(ctx context.Context, tokens []string, msg Message) (BatchResult, error)
}

// compactTokens drops empty and repeated tokens, keeping order.
func compactTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func isInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}
