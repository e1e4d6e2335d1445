package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coopfund/ledger/internal/domain"
)

const (
	queueSize       = 256
	deliveryTimeout = 5 * time.Second
)

// Dispatcher fans events out to the notifier and audit sink on a background
// worker. Enqueueing never blocks the caller: when the queue is full the
// event is dropped with a warning, which is acceptable because delivery is
// best-effort by contract.
type Dispatcher struct {
	notifier Notifier
	audit    AuditSink
	log      *slog.Logger

	queue chan func(ctx context.Context) error
	wg    sync.WaitGroup
	once  sync.Once
}

func NewDispatcher(notifier Notifier, audit AuditSink, log *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		notifier: notifier,
		audit:    audit,
		log:      log.With("component", "dispatcher"),
		queue:    make(chan func(ctx context.Context) error, queueSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for deliver := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := deliver(ctx); err != nil {
			d.log.Warn("delivery failed", "error", err)
		}
		cancel()
	}
}

func (d *Dispatcher) enqueue(deliver func(ctx context.Context) error) {
	select {
	case d.queue <- deliver:
	default:
		d.log.Warn("event queue full, dropping event")
	}
}

func (d *Dispatcher) NotifyUser(ownerID, title, body string) {
	d.enqueue(func(ctx context.Context) error {
		return d.notifier.NotifyUser(ctx, ownerID, title, body)
	})
}

func (d *Dispatcher) NotifyAdmin(message string, severity Severity) {
	d.enqueue(func(ctx context.Context) error {
		return d.notifier.NotifyAdmin(ctx, message, severity)
	})
}

func (d *Dispatcher) RecordAudit(ev domain.AuditEvent) {
	d.enqueue(func(ctx context.Context) error {
		return d.audit.Record(ctx, ev)
	})
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.queue) })
	d.wg.Wait()
}
