package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Forwarder posts one event to the remote security-event endpoint.
type Forwarder interface {
	PostSecurityEvent(ctx context.Context, accessToken string, event any) error
}

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	PostTimeout time.Duration
}

type delivery struct {
	event Event
	token string
}

// Dispatcher asynchronously forwards audit events to a Forwarder.
type Dispatcher struct {
	cfg       Config
	forwarder Forwarder
	logger    *slog.Logger

	ch        chan delivery
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	delivered atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher. It returns nil when forwarding is
// disabled or no forwarder is given; a nil Dispatcher accepts and ignores
// every call.
func NewDispatcher(cfg Config, fwd Forwarder, logger *slog.Logger) *Dispatcher {
	if !cfg.Enabled || fwd == nil {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.PostTimeout <= 0 {
		cfg.PostTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:       cfg,
		forwarder: fwd,
		logger:    logger,
		ch:        make(chan delivery, cfg.BufferSize),
		done:      make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.ch:
			d.post(job)
		case <-d.done:
			for {
				select {
				case job := <-d.ch:
					d.post(job)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) post(job delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PostTimeout)
	defer cancel()

	if err := d.forwarder.PostSecurityEvent(ctx, job.token, job.event); err != nil {
		d.failed.Add(1)
		d.logger.Warn("audit forward failed", "event", job.event.Type, "id", job.event.ID, "err", err)
		return
	}
	d.delivered.Add(1)
}

// Enqueue schedules event for remote delivery with token as credential.
func (d *Dispatcher) Enqueue(ctx context.Context, event Event, token string) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	job := delivery{event: event, token: token}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- job:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- job:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close drains queued deliveries and stops the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}

func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
