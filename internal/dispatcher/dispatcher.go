// Package dispatcher routes calculator commands to their handlers, optionally
// through a per-command queue.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrUnknownCommand is returned when no handler is registered for a command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQueueFull is returned when a non-blocking queue has no room left.
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Queued is the result of dispatching to a buffered handler.
const Queued = "queued"

// Event is one calculator command, e.g. "gun.set" with its arguments.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	bufferSize int
	blocking   bool
	logged     bool
	usage      *string
}

// Buffered runs the handler on its own goroutine fed by a queue of the given size.
// Dispatch returns Queued immediately; handler errors are only logged.
func Buffered(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(o *options) {
		o.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(o *options) {
		o.logged = true
	}
}

// Usage documents the command's arguments for Help; text may be empty for commands
// without arguments. Commands registered without Usage are internal and left out of Help.
func Usage(text string) Option {
	return func(o *options) {
		o.usage = &text
	}
}

type queue struct {
	events   chan Event
	blocking bool
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	usage    map[string]string
	queues   map[string]*queue
	closed   bool
	workers  sync.WaitGroup

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
		usage:    make(map[string]string),
		queues:   make(map[string]*queue),
	}

	m := meter()
	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events waiting per command"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(d.observeQueues, d.queueSize)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to a full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

func (d *Dispatcher) observeQueues(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, q := range d.queues {
		o.ObserveInt64(d.queueSize, int64(len(q.events)),
			metric.WithAttributes(attribute.String("command", cmd)))
	}
	return nil
}

// Register adds a handler for the given command, replacing any previous one.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	handler := d.withMetrics(command, h)
	if o.logged {
		handler = d.withLogging(command, handler)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[command] = handler
	if o.usage != nil {
		d.usage[command] = *o.usage
	}
	if o.bufferSize > 0 {
		q := &queue{events: make(chan Event, o.bufferSize), blocking: o.blocking}
		d.queues[command] = q
		d.workers.Add(1)
		go d.work(command, q, handler)
	}
}

func (d *Dispatcher) work(command string, q *queue, h HandlerFunc) {
	defer d.workers.Done()
	for e := range q.events {
		if _, err := h(e); err != nil {
			d.logger.Error("queued event failed", "command", command, "error", err)
		}
	}
}

// Dispatch routes an event to its registered handler. A zero Timestamp is set to now.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return nil, ErrClosed
	}
	h, ok := d.handlers[e.Command]
	if !ok {
		d.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	q, buffered := d.queues[e.Command]
	if !buffered {
		// handlers may dispatch follow-up events themselves
		d.mu.RUnlock()
		return h(e)
	}

	// the read lock keeps Close from closing the queue under a pending send
	defer d.mu.RUnlock()
	if q.blocking {
		q.events <- e
		return Queued, nil
	}
	select {
	case q.events <- e:
		return Queued, nil
	default:
		d.dropped.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("command", e.Command)))
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, e.Command)
	}
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Help returns one "command usage" line per documented command, sorted by command.
func (d *Dispatcher) Help() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.usage))
	for cmd, usage := range d.usage {
		out = append(out, strings.TrimSpace(cmd+" "+usage))
	}
	sort.Strings(out)
	return out
}

// Close stops accepting events and waits until every queue has been drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q.events)
	}
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) withMetrics(command string, h HandlerFunc) HandlerFunc {
	cmdAttr := metric.WithAttributes(attribute.String("command", command))
	return func(e Event) (any, error) {
		result, err := h(e)
		d.processed.Add(context.Background(), 1, cmdAttr)
		if err != nil {
			d.failed.Add(context.Background(), 1, cmdAttr)
		}
		return result, err
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", e.Args)

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start),
				"queued", time.Since(e.Timestamp))
		}
		return result, err
	}
}
