package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"jeevandhara/internal/observability"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const (
	fcmAndroidChannel = "blood_requests"
	fcmClickAction    = "FLUTTER_NOTIFICATION_CLICK"
	fcmMulticastLimit = 8
)

// FCMConfig configures the Firebase Cloud Messaging HTTP v1 client.
type FCMConfig struct {
	Endpoint    string
	ProjectID   string
	AccessToken string
	Timeout     time.Duration
}

// FCMClient sends notifications through the FCM HTTP v1 API.
type FCMClient struct {
	http      *resty.Client
	projectID string
}

type fcmAndroidNotification struct {
	ChannelID             string `json:"channel_id"`
	NotificationPriority  string `json:"notification_priority"`
	DefaultSound          bool   `json:"default_sound"`
	DefaultVibrateTimings bool   `json:"default_vibrate_timings"`
}

type fcmAndroid struct {
	Priority     string                 `json:"priority"`
	Notification fcmAndroidNotification `json:"notification"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      fcmAndroid        `json:"android"`
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmErrorDetail struct {
	Type      string `json:"@type"`
	ErrorCode string `json:"errorCode"`
}

type fcmErrorResponse struct {
	Error struct {
		Code    int              `json:"code"`
		Message string           `json:"message"`
		Status  string           `json:"status"`
		Details []fcmErrorDetail `json:"details"`
	} `json:"error"`
}

// invalidToken reports whether the provider rejected the token itself
// rather than the request.
func (e *fcmErrorResponse) invalidToken() bool {
	for _, d := range e.Error.Details {
		if d.ErrorCode == "UNREGISTERED" || d.ErrorCode == "INVALID_ARGUMENT" {
			return true
		}
	}
	return e.Error.Status == "NOT_FOUND"
}

// NewFCMClient returns a client for cfg. The access token is sent as a
// bearer credential on every call.
func NewFCMClient(cfg FCMConfig) (*FCMClient, error) {
	if cfg.ProjectID == "" || cfg.AccessToken == "" {
		return nil, fmt.Errorf("fcm: project id and access token are required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://fcm.googleapis.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		}).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &FCMClient{http: client, projectID: cfg.ProjectID}, nil
}

func (c *FCMClient) build(token string, msg Message) fcmRequest {
	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["click_action"] = fcmClickAction
	return fcmRequest{Message: fcmMessage{
		Token:        token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         data,
		Android: fcmAndroid{
			Priority: "high",
			Notification: fcmAndroidNotification{
				ChannelID:             fcmAndroidChannel,
				NotificationPriority:  "PRIORITY_HIGH",
				DefaultSound:          true,
				DefaultVibrateTimings: true,
			},
		},
	}}
}

// Send pushes msg to one device. A token the provider no longer recognizes
// yields an error wrapping ErrInvalidToken.
func (c *FCMClient) Send(ctx context.Context, token string, msg Message) error {
	if token == "" {
		return ErrInvalidToken
	}
	var failure fcmErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(c.build(token, msg)).
		SetError(&failure).
		Post(fmt.Sprintf("/v1/projects/%s/messages:send", c.projectID))
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	if resp.IsError() {
		if failure.invalidToken() {
			return fmt.Errorf("fcm send: %s: %w", failure.Error.Status, ErrInvalidToken)
		}
		return fmt.Errorf("fcm send: status %d: %s", resp.StatusCode(), failure.Error.Message)
	}
	observability.GlobalLogger.DebugContext(ctx, "push sent",
		slog.String("title", msg.Title),
		slog.String("event", msg.Event()),
	)
	return nil
}

// SendMulticast pushes msg to every token. The v1 API has no batch call, so
// tokens are sent concurrently with a small fan-out limit.
func (c *FCMClient) SendMulticast(ctx context.Context, tokens []string, msg Message) (BatchResult, error) {
	tokens = compactTokens(tokens)
	var (
		mu  sync.Mutex
		res BatchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fcmMulticastLimit)
	for _, token := range tokens {
		g.Go(func() error {
			err := c.Send(gctx, token, msg)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.Success++
			case isInvalidToken(err):
				res.Failure++
				res.InvalidTokens = append(res.InvalidTokens, token)
			default:
				res.Failure++
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}
