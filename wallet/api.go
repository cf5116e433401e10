// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
)

// ServiceName is the JSON-RPC namespace of the wallet API.
const ServiceName = "wallet"

var (
	errUnknownPayload = errors.New("unknown payload type")
	errMissingPayload = errors.New("payload does not match transaction type")
)

// SignAndSendArgs is the wire form of a signing request. Exactly one of the
// payload fields is set, matching [Type].
type SignAndSendArgs struct {
	Sender     string                `json:"sender"`
	Type       chain.TransactionKind `json:"type"`
	Deploy     *DeployModuleArgs     `json:"deployModule,omitempty"`
	Init       *InitContractArgs     `json:"initContract,omitempty"`
	Update     *UpdateContractArgs   `json:"update,omitempty"`
	Parameters *TypedParameters      `json:"parameters,omitempty"`
}

type SignAndSendReply struct {
	TransactionHash chain.TransactionRef `json:"transactionHash"`
}

type DeployModuleArgs struct {
	Source string `json:"source"`
}

type InitContractArgs struct {
	Amount    json.Uint64 `json:"amount"`
	ModuleRef module.Ref  `json:"moduleRef"`
	InitName  string      `json:"initName"`
	Param     string      `json:"param"`
	MaxEnergy json.Uint64 `json:"maxContractExecutionEnergy"`
}

type UpdateContractArgs struct {
	Amount      json.Uint64           `json:"amount"`
	Address     chain.ContractAddress `json:"address"`
	ReceiveName string                `json:"receiveName"`
	Param       string                `json:"param"`
	MaxEnergy   json.Uint64           `json:"maxContractExecutionEnergy"`
}

// EncodeArgs converts a payload into its wire form.
func EncodeArgs(sender string, payload Payload, params *TypedParameters) (*SignAndSendArgs, error) {
	args := &SignAndSendArgs{
		Sender:     sender,
		Type:       payload.Kind(),
		Parameters: params,
	}
	switch p := payload.(type) {
	case *DeployModulePayload:
		source, err := formatting.Encode(formatting.HexNC, p.Source)
		if err != nil {
			return nil, err
		}
		args.Deploy = &DeployModuleArgs{Source: source}
	case *InitContractPayload:
		param, err := formatting.Encode(formatting.HexNC, p.Param)
		if err != nil {
			return nil, err
		}
		args.Init = &InitContractArgs{
			Amount:    json.Uint64(p.Amount),
			ModuleRef: p.ModuleRef,
			InitName:  p.InitName,
			Param:     param,
			MaxEnergy: json.Uint64(p.MaxEnergy),
		}
	case *UpdateContractPayload:
		param, err := formatting.Encode(formatting.HexNC, p.Param)
		if err != nil {
			return nil, err
		}
		args.Update = &UpdateContractArgs{
			Amount:      json.Uint64(p.Amount),
			Address:     p.Address,
			ReceiveName: p.ReceiveName,
			Param:       param,
			MaxEnergy:   json.Uint64(p.MaxEnergy),
		}
	default:
		return nil, fmt.Errorf("%w: %T", errUnknownPayload, payload)
	}
	return args, nil
}

// DecodePayload is the inverse of [EncodeArgs].
func DecodePayload(args *SignAndSendArgs) (Payload, error) {
	switch args.Type {
	case chain.DeployModule:
		if args.Deploy == nil {
			return nil, errMissingPayload
		}
		source, err := formatting.Decode(formatting.HexNC, args.Deploy.Source)
		if err != nil {
			return nil, err
		}
		return &DeployModulePayload{Source: source}, nil
	case chain.InitContract:
		if args.Init == nil {
			return nil, errMissingPayload
		}
		param, err := formatting.Decode(formatting.HexNC, args.Init.Param)
		if err != nil {
			return nil, err
		}
		return &InitContractPayload{
			Amount:    uint64(args.Init.Amount),
			ModuleRef: args.Init.ModuleRef,
			InitName:  args.Init.InitName,
			Param:     param,
			MaxEnergy: uint64(args.Init.MaxEnergy),
		}, nil
	case chain.Update:
		if args.Update == nil {
			return nil, errMissingPayload
		}
		param, err := formatting.Decode(formatting.HexNC, args.Update.Param)
		if err != nil {
			return nil, err
		}
		return &UpdateContractPayload{
			Amount:      uint64(args.Update.Amount),
			Address:     args.Update.Address,
			ReceiveName: args.Update.ReceiveName,
			Param:       param,
			MaxEnergy:   uint64(args.Update.MaxEnergy),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownPayload, args.Type)
	}
}
