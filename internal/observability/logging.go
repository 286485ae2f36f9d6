// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger for background work that runs outside
// a request.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetGlobalLogger routes background logs through l, typically the
// request logger so both share handlers and context decoration.
func SetGlobalLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = &Logger{Logger: l}
	}
}

// TaskLog records one background task run. Start it with StartTask and
// finish it with Done.
type TaskLog struct {
	ctx   context.Context
	attrs []any
	start time.Time
}

// StartTask logs at debug that kind/name began.
func StartTask(ctx context.Context, kind, name string) *TaskLog {
	t := &TaskLog{
		ctx:   ctx,
		attrs: []any{slog.String("task_kind", kind), slog.String("task", name)},
		start: time.Now(),
	}
	GlobalLogger.DebugContext(ctx, "task started", t.attrs...)
	return t
}

// Done logs the outcome with the elapsed time. A failed task logs at error.
func (t *TaskLog) Done(err error) {
	attrs := append(t.attrs, slog.Duration("took", time.Since(t.start)))
	if err != nil {
		GlobalLogger.ErrorContext(t.ctx, "task failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	GlobalLogger.InfoContext(t.ctx, "task finished", attrs...)
}

// WSLogger logs socket lifecycle events of one hub.
type WSLogger struct {
	hubName string
}

func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{hubName: hubName}
}

func (l *WSLogger) LogConnect(ctx context.Context, channel string) {
	GlobalLogger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.String("channel", channel),
	)
}

func (l *WSLogger) LogDisconnect(ctx context.Context, channel, reason string) {
	GlobalLogger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.String("channel", channel),
		slog.String("reason", reason),
	)
}

func (l *WSLogger) LogError(ctx context.Context, channel string, err error) {
	GlobalLogger.ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.String("channel", channel),
		slog.String("error", err.Error()),
	)
}
