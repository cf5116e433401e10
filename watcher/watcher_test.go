// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
)

const testInterval = time.Millisecond

var errNodeDown = errors.New("node unreachable")

type response struct {
	status *chain.BlockItemStatus
	err    error
}

// scriptedQuerier replays responses in order and reports pending afterwards.
type scriptedQuerier struct {
	lock      sync.Mutex
	responses []response
	calls     int
}

func (q *scriptedQuerier) GetBlockItemStatus(context.Context, chain.TransactionRef) (*chain.BlockItemStatus, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.calls++
	if len(q.responses) == 0 {
		return pending(), nil
	}
	r := q.responses[0]
	q.responses = q.responses[1:]
	return r.status, r.err
}

func (q *scriptedQuerier) Calls() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return q.calls
}

func pending() *chain.BlockItemStatus {
	return &chain.BlockItemStatus{Status: chain.StatusCommitted}
}

func finalized(kind chain.TransactionKind) *chain.BlockItemStatus {
	ref := module.RefOf([]byte("m"))
	return &chain.BlockItemStatus{
		Status: chain.StatusFinalized,
		Outcome: &chain.BlockItemSummary{
			Type:            chain.AccountTransaction,
			TransactionType: kind,
			ModuleDeployed:  &ref,
		},
	}
}

func TestSuccessStopsPolling(t *testing.T) {
	require := require.New(t)

	q := &scriptedQuerier{responses: []response{
		{status: pending()},
		{status: finalized(chain.DeployModule)},
	}}
	out, err := Watch(context.Background(), q, chain.DeployModule, "0xabc", WithInterval(testInterval))
	require.NoError(err)
	require.Equal(FinalizedSuccess, out.State)
	require.Equal(chain.TransactionRef("0xabc"), out.TxRef)
	require.NotNil(out.Summary)

	time.Sleep(20 * testInterval)
	require.Equal(2, q.Calls())
}

func TestQueryErrorIsTerminal(t *testing.T) {
	require := require.New(t)

	q := &scriptedQuerier{responses: []response{
		{status: pending()},
		{err: errNodeDown},
	}}
	w := New(q, chain.InitContract, WithInterval(testInterval))
	require.NoError(w.Start(context.Background(), "0xdef"))

	out, err := w.Wait(context.Background())
	require.NoError(err)
	require.Equal(Errored, out.State)
	require.Equal(errNodeDown.Error(), out.Message)

	time.Sleep(20 * testInterval)
	require.Equal(2, q.Calls())
	require.Equal(2, w.Queries())
}

func TestClassify(t *testing.T) {
	rejected := finalized(chain.Failed)
	rejected.Outcome.RejectReason = &chain.RejectReason{Tag: chain.RejectedInit, RejectReason: chain.NotPayableCode}

	creation := finalized("")
	creation.Outcome.Type = chain.AccountCreation

	tests := []struct {
		name     string
		status   *chain.BlockItemStatus
		err      error
		want     State
		terminal bool
		message  string
	}{
		{name: "received", status: &chain.BlockItemStatus{Status: chain.StatusReceived}, want: Idle},
		{name: "committed", status: pending(), want: Idle},
		{name: "nil status", want: Idle},
		{name: "error", err: errNodeDown, want: Errored, terminal: true, message: errNodeDown.Error()},
		{name: "expected kind", status: finalized(chain.Update), want: FinalizedSuccess, terminal: true},
		{
			name:     "other kind",
			status:   finalized(chain.DeployModule),
			want:     FinalizedFailure,
			terminal: true,
			message:  "expected a update transaction but got deployModule",
		},
		{
			name:     "rejected",
			status:   rejected,
			want:     FinalizedFailure,
			terminal: true,
			message:  "transaction rejected: [NotPayableError] (code -2147483636)",
		},
		{
			name:     "not an account transaction",
			status:   creation,
			want:     FinalizedFailure,
			terminal: true,
			message:  "unexpected block item type accountCreation",
		},
		{
			name:     "no summary",
			status:   &chain.BlockItemStatus{Status: chain.StatusFinalized},
			want:     FinalizedFailure,
			terminal: true,
			message:  "finalized without a summary",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			out, terminal := classify(chain.Update, "0x1", tt.status, tt.err)
			assert.Equal(tt.terminal, terminal)
			assert.Equal(tt.want, out.State)
			assert.Equal(tt.message, out.Message)
		})
	}
}

// blockingQuerier holds every query until release is closed.
type blockingQuerier struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	calls   int
	lock    sync.Mutex
}

func (q *blockingQuerier) GetBlockItemStatus(context.Context, chain.TransactionRef) (*chain.BlockItemStatus, error) {
	q.lock.Lock()
	q.calls++
	q.lock.Unlock()

	q.once.Do(func() { close(q.entered) })
	<-q.release
	return finalized(chain.DeployModule), nil
}

func TestStopDropsLateResult(t *testing.T) {
	require := require.New(t)

	q := &blockingQuerier{entered: make(chan struct{}), release: make(chan struct{})}
	w := New(q, chain.DeployModule, WithInterval(testInterval))
	require.NoError(w.Start(context.Background(), "0xabc"))

	<-q.entered
	w.Stop()
	close(q.release)
	<-w.Done()

	out := w.Outcome()
	require.Equal(Watching, out.State)
	require.Nil(out.Summary)
	require.Equal(1, w.Queries())
}

func TestStopBeforeStart(t *testing.T) {
	require := require.New(t)

	w := New(&scriptedQuerier{}, chain.DeployModule)
	w.Stop()
	w.Stop()

	select {
	case <-w.Done():
	default:
		require.FailNow("done should be closed")
	}
	require.ErrorIs(w.Start(context.Background(), "0xabc"), errAlreadyStarted)
	require.Equal(Idle, w.Outcome().State)
}

func TestStartTwice(t *testing.T) {
	require := require.New(t)

	w := New(&scriptedQuerier{}, chain.DeployModule, WithInterval(time.Hour))
	require.NoError(w.Start(context.Background(), "0x1"))
	require.ErrorIs(w.Start(context.Background(), "0x2"), errAlreadyStarted)
	require.Equal(Watching, w.Outcome().State)
	require.Equal(chain.TransactionRef("0x1"), w.Outcome().TxRef)
	w.Stop()
	<-w.Done()
	require.Zero(w.Queries())
}

func TestWatchContextCancelled(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*testInterval)
	defer cancel()

	out, err := Watch(ctx, &scriptedQuerier{}, chain.DeployModule, "0xabc", WithInterval(testInterval))
	require.ErrorIs(err, context.DeadlineExceeded)
	require.Equal(Watching, out.State)
}

func TestMetrics(t *testing.T) {
	require := require.New(t)

	reg := prometheus.NewRegistry()
	m, err := NewMetrics("contracttools", reg)
	require.NoError(err)

	q := &scriptedQuerier{responses: []response{
		{status: pending()},
		{status: pending()},
		{status: finalized(chain.InitContract)},
	}}
	_, err = Watch(context.Background(), q, chain.InitContract, "0x1", WithInterval(testInterval), WithMetrics(m))
	require.NoError(err)

	require.Equal(3.0, testutil.ToFloat64(m.polls))
	require.Equal(0.0, testutil.ToFloat64(m.errors))
	require.Equal(0.0, testutil.ToFloat64(m.watching))
	require.Equal(1.0, testutil.ToFloat64(m.outcomes.WithLabelValues(FinalizedSuccess.String())))

	_, err = NewMetrics("contracttools", reg)
	require.Error(err)
}

func TestStateText(t *testing.T) {
	require := require.New(t)

	for s := Idle; s <= Errored; s++ {
		text, err := s.MarshalText()
		require.NoError(err)
		var parsed State
		require.NoError(parsed.UnmarshalText(text))
		require.Equal(s, parsed)
	}
	require.True(Errored.Terminal())
	require.False(Watching.Terminal())
}
