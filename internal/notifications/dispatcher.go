package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"jeevandhara/internal/observability"
)

// ErrDispatcherClosed is returned by Shutdown when called twice.
var ErrDispatcherClosed = errors.New("dispatcher already shut down")

// DispatcherOptions sizes the worker pool.
type DispatcherOptions struct {
	Workers      int
	QueueSize    int
	ErrorLogSize int
	TaskTimeout  time.Duration
}

func (o DispatcherOptions) withDefaults() DispatcherOptions {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.ErrorLogSize <= 0 {
		o.ErrorLogSize = 100
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = 30 * time.Second
	}
	return o
}

// TaskError is one entry of the dispatcher's failure log.
type TaskError struct {
	Task  string    `json:"task"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

// Dispatcher runs notification work off the request path on a fixed pool
// of workers fed by a bounded queue.
type Dispatcher struct {
	opts  DispatcherOptions
	queue chan task
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	logMu  sync.Mutex
	errLog []TaskError
	next   int
	filled bool
}

// NewDispatcher starts the workers.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts:   opts,
		queue:  make(chan task, opts.QueueSize),
		errLog: make([]TaskError, opts.ErrorLogSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue schedules fn without blocking. It reports false when the task was
// dropped because the queue is full or the dispatcher is shutting down.
func (d *Dispatcher) Enqueue(name string, fn func(ctx context.Context) error) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(name, "closed")
		return false
	}
	select {
	case d.queue <- task{name: name, run: fn}:
		observability.NotificationQueueDepth.Set(float64(len(d.queue)))
		return true
	default:
		d.drop(name, "queue_full")
		return false
	}
}

func (d *Dispatcher) drop(name, reason string) {
	observability.NotificationDrops.WithLabelValues(reason).Inc()
	d.record(name, fmt.Errorf("dropped: %s", reason))
	observability.GlobalLogger.Warn("notification task dropped",
		slog.String("task", name),
		slog.String("reason", reason),
	)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		observability.NotificationQueueDepth.Set(float64(len(d.queue)))
		d.execute(t)
	}
}

func (d *Dispatcher) execute(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.TaskTimeout)
	defer cancel()

	run := observability.StartTask(ctx, "notification", t.name)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				observability.GlobalLogger.Error("panic in notification task",
					slog.String("task", t.name),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return t.run(ctx)
	}()

	if err != nil {
		d.record(t.name, err)
	}
	run.Done(err)
}

func (d *Dispatcher) record(name string, err error) {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	d.errLog[d.next] = TaskError{Task: name, Error: err.Error(), At: time.Now().UTC()}
	d.next = (d.next + 1) % len(d.errLog)
	if d.next == 0 {
		d.filled = true
	}
}

// Errors returns the recorded failures, oldest first.
func (d *Dispatcher) Errors() []TaskError {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	if !d.filled {
		return append([]TaskError(nil), d.errLog[:d.next]...)
	}
	out := make([]TaskError, 0, len(d.errLog))
	out = append(out, d.errLog[d.next:]...)
	return append(out, d.errLog[:d.next]...)
}

// Shutdown stops accepting tasks and waits for queued ones to finish or for
// ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher drain: %w", ctx.Err())
	}
}
