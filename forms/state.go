// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package forms implements the deploy, initialize, update and read
// workflows. Each form validates its input, submits through the wallet and
// follows the resulting transaction until it is finalized. Every failure is
// recorded in the form's State so the user can correct the input and retry.
package forms

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/schema"
	"github.com/ava-labs/contracttools/wallet"
	"github.com/ava-labs/contracttools/watcher"
)

// Kind names one of the four forms.
type Kind string

const (
	DeployKind     Kind = "deploy"
	InitializeKind Kind = "initialize"
	UpdateKind     Kind = "update"
	ReadKind       Kind = "read"
)

// Advisory warnings.
const (
	WarnAlreadyDeployed   = "module is already deployed"
	WarnNotOnChain        = "module reference does not exist on chain"
	WarnRefMismatch       = "module references in step 1 and step 2 are different"
	WarnNoEmbeddedSchema  = "module has no embedded schema"
	WarnUndeclaredParam   = "schema declares an input parameter but none is set"
	WarnUnknownContract   = "contract name is not exported by the module"
	WarnUnknownEntrypoint = "entry point is not exposed by the contract instance"
)

var errNotInspected = errors.New("module has not been inspected")

// State is everything a front end renders for one form.
type State struct {
	Form Kind `json:"form"`

	TxRef          chain.TransactionRef `json:"transactionHash,omitempty"`
	Outcome        watcher.State        `json:"outcome"`
	OutcomeMessage string               `json:"outcomeMessage,omitempty"`
	ExplorerURL    string               `json:"explorerURL,omitempty"`

	// Error is the last failure, cleared on the next action.
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	ModuleRef         string   `json:"moduleRef,omitempty"`
	ContractNames     []string `json:"contractNames,omitempty"`
	Entrypoints       []string `json:"entrypoints,omitempty"`
	EmbeddedSchema    string   `json:"embeddedSchema,omitempty"`
	ReproducibleBuild bool     `json:"reproducibleBuild,omitempty"`
	AlreadyDeployed   bool     `json:"alreadyDeployed,omitempty"`
	// ParameterTemplate is a JSON template of the expected input parameter.
	ParameterTemplate string `json:"parameterTemplate,omitempty"`

	// ContractIndex is set once an initialize transaction succeeded.
	ContractIndex *uint64 `json:"contractIndex,omitempty"`
	// ReturnValue is the decoded result of a read.
	ReturnValue json.RawMessage `json:"returnValue,omitempty"`
}

func (s *State) warn(msg string) {
	for _, w := range s.Warnings {
		if w == msg {
			return
		}
	}
	s.Warnings = append(s.Warnings, msg)
}

func (s State) clone() State {
	s.Warnings = append([]string(nil), s.Warnings...)
	s.ContractNames = append([]string(nil), s.ContractNames...)
	s.Entrypoints = append([]string(nil), s.Entrypoints...)
	if s.ContractIndex != nil {
		idx := *s.ContractIndex
		s.ContractIndex = &idx
	}
	return s
}

// Deps are the collaborators shared by all forms.
type Deps struct {
	Chain     chain.Client
	Wallet    wallet.Connection
	Codec     schema.Codec
	Inspector module.Inspector
	// Network is used for explorer links. The zero value disables them.
	Network      chain.Network
	WatchOptions []watcher.Option
}

// tracker owns the state record of one form and its in-flight watcher.
type tracker struct {
	deps Deps
	log  log.Logger

	lock    sync.Mutex
	state   State
	current *watcher.Watcher
	settled chan struct{}
}

func newTracker(kind Kind, deps Deps) *tracker {
	settled := make(chan struct{})
	close(settled)
	return &tracker{
		deps:    deps,
		log:     log.New("module", "forms", "form", kind),
		state:   State{Form: kind},
		settled: settled,
	}
}

// State returns a snapshot of the form.
func (t *tracker) State() State {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.state.clone()
}

// Cancel stops watching the current transaction, if any.
func (t *tracker) Cancel() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.stopLocked()
}

// Wait blocks until the current watch has settled into the state record.
func (t *tracker) Wait(ctx context.Context) (State, error) {
	t.lock.Lock()
	settled := t.settled
	t.lock.Unlock()

	select {
	case <-settled:
		return t.State(), nil
	case <-ctx.Done():
		return t.State(), ctx.Err()
	}
}

func (t *tracker) stopLocked() {
	if t.current != nil {
		t.current.Stop()
		t.current = nil
	}
}

// begin discards the previous watch and the previous result, keeping the
// fields set by [keep].
func (t *tracker) begin(keep func(prev State, next *State)) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.stopLocked()
	next := State{Form: t.state.Form}
	if keep != nil {
		keep(t.state, &next)
	}
	t.state = next
}

func (t *tracker) update(f func(*State)) State {
	t.lock.Lock()
	defer t.lock.Unlock()

	f(&t.state)
	return t.state.clone()
}

// fail records [err] as the user visible error and returns it.
func (t *tracker) fail(err error) (State, error) {
	t.log.Debug("form action failed", "error", err)
	return t.update(func(s *State) { s.Error = err.Error() }), err
}

// track starts a fresh watcher for [ref]. [onSuccess] runs under the state
// lock once the transaction finalized successfully.
func (t *tracker) track(ref chain.TransactionRef, kind chain.TransactionKind, onSuccess func(*State, watcher.Outcome)) (State, error) {
	w := watcher.New(t.deps.Chain, kind, t.deps.WatchOptions...)
	settled := make(chan struct{})

	t.lock.Lock()
	t.stopLocked()
	t.current = w
	t.settled = settled
	t.state.TxRef = ref
	t.state.Outcome = watcher.Watching
	t.state.ExplorerURL = t.deps.Network.TransactionURL(ref)
	t.lock.Unlock()

	// the watcher outlives the request that submitted the transaction
	if err := w.Start(context.Background(), ref); err != nil {
		close(settled)
		return t.fail(err)
	}
	go t.settle(w, settled, onSuccess)
	return t.State(), nil
}

func (t *tracker) settle(w *watcher.Watcher, settled chan struct{}, onSuccess func(*State, watcher.Outcome)) {
	defer close(settled)
	<-w.Done()

	out := w.Outcome()
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.current != w || !out.State.Terminal() {
		return
	}
	t.current = nil
	t.state.Outcome = out.State
	t.state.OutcomeMessage = out.Message
	if out.State == watcher.Errored {
		t.state.Error = out.Message
	}
	if out.State == watcher.FinalizedSuccess && onSuccess != nil {
		onSuccess(&t.state, out)
	}
	t.log.Info("transaction settled", "txRef", out.TxRef, "outcome", out.State)
}
