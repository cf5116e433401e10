// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package watcher polls the chain for the status of a submitted transaction
// until it is finalized.
package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/contracttools/chain"
)

// DefaultInterval is the time between two status queries.
const DefaultInterval = 10 * time.Second

var errAlreadyStarted = errors.New("watcher already started")

// Querier is the part of the chain client a watcher needs.
type Querier interface {
	GetBlockItemStatus(ctx context.Context, ref chain.TransactionRef) (*chain.BlockItemStatus, error)
}

type Option func(*Watcher)

func WithInterval(d time.Duration) Option {
	return func(w *Watcher) { w.interval = d }
}

func WithMetrics(m *Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

func WithLogger(l log.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// Watcher follows a single transaction. Queries are strictly sequential: the
// next one is scheduled only after the previous one returned. Once stopped,
// results that arrive late are dropped.
type Watcher struct {
	querier  Querier
	expected chain.TransactionKind
	interval time.Duration
	metrics  *Metrics
	log      log.Logger

	lock    sync.Mutex
	outcome Outcome
	queries int
	started bool
	stopped bool
	cancel  context.CancelFunc

	done      chan struct{}
	closeDone sync.Once
}

// New returns an idle watcher that expects a transaction of kind [expected].
func New(q Querier, expected chain.TransactionKind, opts ...Option) *Watcher {
	w := &Watcher{
		querier:  q,
		expected: expected,
		interval: DefaultInterval,
		log:      log.New("module", "watcher"),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start moves the watcher to Watching and begins polling for [ref]. The first
// query is issued one interval later. Cancelling [ctx] has the same effect
// as Stop.
func (w *Watcher) Start(ctx context.Context, ref chain.TransactionRef) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.started || w.stopped {
		return errAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	w.started = true
	w.cancel = cancel
	w.outcome = Outcome{State: Watching, TxRef: ref}
	w.metrics.started()

	go w.run(ctx, ref)
	return nil
}

// Stop cancels polling. It is safe to call more than once and before Start.
func (w *Watcher) Stop() {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	if w.cancel != nil {
		w.cancel()
	}
	if !w.started {
		w.closeDone.Do(func() { close(w.done) })
	}
}

// Done is closed once the polling goroutine has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) Outcome() Outcome {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.outcome
}

// Queries returns the number of status queries issued so far.
func (w *Watcher) Queries() int {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.queries
}

// Wait blocks until the watcher is done or [ctx] is cancelled.
func (w *Watcher) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-w.done:
		return w.Outcome(), nil
	case <-ctx.Done():
		return w.Outcome(), ctx.Err()
	}
}

// Watch polls [ref] until it is finalized, a query fails, or [ctx] is
// cancelled, and returns the outcome.
func Watch(ctx context.Context, q Querier, expected chain.TransactionKind, ref chain.TransactionRef, opts ...Option) (Outcome, error) {
	w := New(q, expected, opts...)
	if err := w.Start(ctx, ref); err != nil {
		return Outcome{}, err
	}
	defer w.Stop()

	out, err := w.Wait(ctx)
	if err == nil && !out.State.Terminal() {
		// polling stopped without a result; report why
		err = ctx.Err()
	}
	return out, err
}

func (w *Watcher) run(ctx context.Context, ref chain.TransactionRef) {
	defer w.closeDone.Do(func() { close(w.done) })

	logger := w.log.New("txRef", ref)
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.finish(Outcome{})
			return
		case <-timer.C:
		}

		if !w.beginQuery() {
			w.finish(Outcome{})
			return
		}
		status, err := w.querier.GetBlockItemStatus(ctx, ref)
		next, terminal := classify(w.expected, ref, status, err)

		w.lock.Lock()
		if w.stopped || ctx.Err() != nil {
			w.lock.Unlock()
			logger.Debug("dropping status after cancellation")
			w.finish(Outcome{})
			return
		}
		if terminal {
			w.outcome = next
		}
		w.lock.Unlock()

		if terminal {
			logger.Info("transaction watch finished", "state", next.State, "message", next.Message)
			w.finish(next)
			return
		}
		if status != nil {
			logger.Debug("transaction not finalized yet", "status", status.Status)
		}
		timer.Reset(w.interval)
	}
}

func (w *Watcher) beginQuery() bool {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.stopped {
		return false
	}
	w.queries++
	w.metrics.poll()
	return true
}

func (w *Watcher) finish(out Outcome) {
	w.metrics.finished(out)
	// release the derived context once polling is over
	w.lock.Lock()
	cancel := w.cancel
	w.lock.Unlock()
	cancel()
}
