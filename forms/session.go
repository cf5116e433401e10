// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package forms

import (
	"context"
	"fmt"

	"github.com/ava-labs/contracttools/txn"
)

// Session groups the four forms of one user. Initialize can derive from the
// module uploaded to the deploy form.
type Session struct {
	Deploy *DeployForm
	Init   *InitForm
	Update *UpdateForm
	Read   *ReadForm
}

func NewSession(deps Deps) *Session {
	deploy := NewDeployForm(deps)
	return &Session{
		Deploy: deploy,
		Init:   NewInitForm(deps, deploy),
		Update: NewUpdateForm(deps),
		Read:   NewReadForm(deps),
	}
}

// State returns the state of the named form.
func (s *Session) State(kind Kind) (State, error) {
	t, err := s.tracker(kind)
	if err != nil {
		return State{}, err
	}
	return t.State(), nil
}

// Cancel stops watching the transaction of the named form.
func (s *Session) Cancel(kind Kind) error {
	t, err := s.tracker(kind)
	if err != nil {
		return err
	}
	t.Cancel()
	return nil
}

// Close stops all watchers.
func (s *Session) Close() {
	for _, t := range []*tracker{s.Deploy.tracker, s.Init.tracker, s.Update.tracker, s.Read.tracker} {
		t.Cancel()
	}
}

func (s *Session) tracker(kind Kind) (*tracker, error) {
	switch kind {
	case DeployKind:
		return s.Deploy.tracker, nil
	case InitializeKind:
		return s.Init.tracker, nil
	case UpdateKind:
		return s.Update.tracker, nil
	case ReadKind:
		return s.Read.tracker, nil
	default:
		return nil, fmt.Errorf("%w: unknown form %q", txn.ErrValidation, kind)
	}
}

// Wait blocks until the transaction of the named form settles or [ctx] is
// done.
func (s *Session) Wait(ctx context.Context, kind Kind) (State, error) {
	t, err := s.tracker(kind)
	if err != nil {
		return State{}, err
	}
	return t.Wait(ctx)
}
