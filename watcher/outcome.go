// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package watcher

import (
	"fmt"

	"github.com/ava-labs/contracttools/chain"
)

// State of a watched transaction. States only move forward:
// Idle, then Watching, then one of the terminal states.
type State uint8

const (
	Idle State = iota
	Watching
	FinalizedSuccess
	FinalizedFailure
	Errored
)

var stateNames = [...]string{
	Idle:             "idle",
	Watching:         "watching",
	FinalizedSuccess: "finalized-success",
	FinalizedFailure: "finalized-failure",
	Errored:          "error",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown watcher state %q", text)
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == FinalizedSuccess || s == FinalizedFailure || s == Errored
}

// Outcome is the result of watching one transaction.
type Outcome struct {
	State State                `json:"state"`
	TxRef chain.TransactionRef `json:"transactionHash,omitempty"`
	// Summary is set for both finalized states.
	Summary *chain.BlockItemSummary `json:"summary,omitempty"`
	// Message explains a failure or carries the query error.
	Message string `json:"message,omitempty"`
}

// classify turns one status query into the next outcome. It reports false
// while the transaction is not yet finalized.
func classify(expected chain.TransactionKind, ref chain.TransactionRef, status *chain.BlockItemStatus, err error) (Outcome, bool) {
	switch {
	case err != nil:
		return Outcome{State: Errored, TxRef: ref, Message: err.Error()}, true
	case !status.Finalized():
		return Outcome{}, false
	}

	out := Outcome{State: FinalizedFailure, TxRef: ref, Summary: status.Outcome}
	summary := status.Outcome
	switch {
	case summary == nil:
		out.Message = "finalized without a summary"
	case summary.Type != chain.AccountTransaction:
		out.Message = fmt.Sprintf("unexpected block item type %s", summary.Type)
	case summary.RejectReason != nil:
		out.Message = "transaction rejected: " + summary.RejectReason.Describe()
	case summary.TransactionType != expected:
		out.Message = fmt.Sprintf("expected a %s transaction but got %s", expected, summary.TransactionType)
	default:
		out.State = FinalizedSuccess
	}
	return out, true
}
