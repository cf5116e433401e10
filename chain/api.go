// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/contracttools/module"
)

// ServiceName is the JSON-RPC namespace of the node API.
const ServiceName = "chain"

// TransactionArgs identifies a transaction by hash.
type TransactionArgs struct {
	TransactionHash TransactionRef `json:"transactionHash"`
}

// ModuleSourceArgs identifies a module by reference.
type ModuleSourceArgs struct {
	ModuleRef module.Ref `json:"moduleRef"`
}

// ModuleSourceReply carries the hex encoded module source when [Found].
type ModuleSourceReply struct {
	Found  bool   `json:"found"`
	Source string `json:"source,omitempty"`
}

type InvokeContractArgs struct {
	Contract  ContractAddress `json:"contract"`
	Method    string          `json:"method"`
	Parameter string          `json:"parameter"`
	Invoker   string          `json:"invoker,omitempty"`
	Amount    json.Uint64     `json:"amount"`
	Energy    json.Uint64     `json:"energy"`
}

type InvokeContractReply struct {
	Tag         string        `json:"tag"`
	ReturnValue string        `json:"returnValue,omitempty"`
	UsedEnergy  json.Uint64   `json:"usedEnergy"`
	Reason      *RejectReason `json:"reason,omitempty"`
}

type InstanceInfoArgs struct {
	Contract ContractAddress `json:"contract"`
}
