// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"fmt"

	"github.com/ava-labs/contracttools/module"
)

// ContractSubindex is the subindex of every smart contract instance.
const ContractSubindex uint64 = 0

// TransactionRef identifies a submitted transaction. It is opaque to
// everything but the node that issued it.
type TransactionRef string

// TransactionKind is the account transaction type reported in a summary.
type TransactionKind string

const (
	DeployModule TransactionKind = "deployModule"
	InitContract TransactionKind = "initContract"
	Update       TransactionKind = "update"
	// Failed is reported for account transactions that were rejected.
	Failed TransactionKind = "failed"
)

// SummaryType distinguishes account transactions from other block items.
type SummaryType string

const (
	AccountTransaction SummaryType = "accountTransaction"
	AccountCreation    SummaryType = "accountCreation"
	UpdateTransaction  SummaryType = "updateTransaction"
)

// Block item statuses. Only Finalized is terminal.
const (
	StatusReceived  = "received"
	StatusCommitted = "committed"
	StatusFinalized = "finalized"
)

// BlockItemStatus is the node's answer to a status query.
type BlockItemStatus struct {
	Status  string            `json:"status"`
	Outcome *BlockItemSummary `json:"outcome,omitempty"`
}

func (s *BlockItemStatus) Finalized() bool {
	return s != nil && s.Status == StatusFinalized
}

// BlockItemSummary describes the effect of a finalized transaction.
type BlockItemSummary struct {
	BlockHash           string               `json:"blockHash,omitempty"`
	Type                SummaryType          `json:"type"`
	TransactionType     TransactionKind      `json:"transactionType,omitempty"`
	Sender              string               `json:"sender,omitempty"`
	ModuleDeployed      *module.Ref          `json:"moduleDeployed,omitempty"`
	ContractInitialized *ContractInitialized `json:"contractInitialized,omitempty"`
	ContractUpdated     *ContractAddress     `json:"contractUpdated,omitempty"`
	RejectReason        *RejectReason        `json:"rejectReason,omitempty"`
}

// ContractAddress is an (index, subindex) pair.
type ContractAddress struct {
	Index    uint64 `json:"index"`
	Subindex uint64 `json:"subindex"`
}

// NewContractAddress returns the address of instance [index].
func NewContractAddress(index uint64) ContractAddress {
	return ContractAddress{Index: index, Subindex: ContractSubindex}
}

func (a ContractAddress) String() string {
	return fmt.Sprintf("<%d,%d>", a.Index, a.Subindex)
}

type ContractInitialized struct {
	Address  ContractAddress `json:"address"`
	InitName string          `json:"initName"`
	Ref      module.Ref      `json:"ref"`
	Amount   uint64          `json:"amount"`
}

// RejectReason explains why a transaction or invocation was rejected.
// RejectReason is only meaningful for the RejectedInit and RejectedReceive tags.
type RejectReason struct {
	Tag          string           `json:"tag"`
	RejectReason int32            `json:"rejectReason,omitempty"`
	Address      *ContractAddress `json:"contractAddress,omitempty"`
	ReceiveName  string           `json:"receiveName,omitempty"`
}

// InvokeRequest describes a read-only contract invocation.
type InvokeRequest struct {
	Contract ContractAddress
	// Method is "<contract>.<entrypoint>".
	Method    string
	Parameter []byte
	Invoker   string
	Amount    uint64
	Energy    uint64
}

// InvokeResult tags.
const (
	InvokeSuccess = "success"
	InvokeFailure = "failure"
)

type InvokeResult struct {
	Tag         string        `json:"tag"`
	ReturnValue []byte        `json:"returnValue,omitempty"`
	UsedEnergy  uint64        `json:"usedEnergy"`
	Reason      *RejectReason `json:"reason,omitempty"`
}

// InstanceInfo is the on-chain view of a contract instance.
type InstanceInfo struct {
	// Name is the init function name, e.g. "init_myToken".
	Name         string     `json:"name"`
	Methods      []string   `json:"methods"`
	SourceModule module.Ref `json:"sourceModule"`
	Owner        string     `json:"owner"`
	Amount       uint64     `json:"amount"`
}

// Client is the subset of the node API the toolkit consumes.
type Client interface {
	// GetBlockItemStatus reports the status of a submitted transaction.
	GetBlockItemStatus(ctx context.Context, ref TransactionRef) (*BlockItemStatus, error)

	// GetModuleSource returns the module source deployed under [ref], or
	// nil if no such module exists.
	GetModuleSource(ctx context.Context, ref module.Ref) ([]byte, error)

	// InvokeContract runs an entrypoint without creating a transaction.
	InvokeContract(ctx context.Context, req *InvokeRequest) (*InvokeResult, error)

	// GetInstanceInfo looks up the contract instance at [addr].
	GetInstanceInfo(ctx context.Context, addr ContractAddress) (*InstanceInfo, error)
}
