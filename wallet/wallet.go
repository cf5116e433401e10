// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"context"
	"encoding/json"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
)

// Connection signs transactions on behalf of an account and broadcasts them.
type Connection interface {
	// SignAndSendTransaction returns the hash of the broadcast transaction.
	// [params] is nil when the transaction takes no input parameter.
	SignAndSendTransaction(
		ctx context.Context,
		sender string,
		payload Payload,
		params *TypedParameters,
	) (chain.TransactionRef, error)
}

// Payload is one of *DeployModulePayload, *InitContractPayload or
// *UpdateContractPayload.
type Payload interface {
	Kind() chain.TransactionKind
}

var (
	_ Payload = &DeployModulePayload{}
	_ Payload = &InitContractPayload{}
	_ Payload = &UpdateContractPayload{}
)

type DeployModulePayload struct {
	Source []byte
}

func (*DeployModulePayload) Kind() chain.TransactionKind { return chain.DeployModule }

type InitContractPayload struct {
	Amount    uint64
	ModuleRef module.Ref
	// InitName is the contract name without the init_ prefix.
	InitName  string
	Param     []byte
	MaxEnergy uint64
}

func (*InitContractPayload) Kind() chain.TransactionKind { return chain.InitContract }

type UpdateContractPayload struct {
	Amount  uint64
	Address chain.ContractAddress
	// ReceiveName is "<contract>.<entrypoint>".
	ReceiveName string
	Param       []byte
	MaxEnergy   uint64
}

func (*UpdateContractPayload) Kind() chain.TransactionKind { return chain.Update }

// TypedParameters are serialized by the wallet against [Schema].
type TypedParameters struct {
	Parameters json.RawMessage `json:"parameters"`
	// Schema is the base64 encoded module schema.
	Schema string `json:"schema"`
}
