// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/contracttools/module"
)

// ErrRPC wraps every failure to reach the node or decode its answer.
var ErrRPC = errors.New("rpc error")

var _ Client = &client{}

// NewClient returns a Client talking JSON-RPC to the node at [uri].
func NewClient(uri string) Client {
	req := rpc.NewEndpointRequester(uri)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (c *client) GetBlockItemStatus(ctx context.Context, ref TransactionRef) (*BlockItemStatus, error) {
	status := new(BlockItemStatus)
	err := c.req.SendRequest(ctx,
		ServiceName+".getBlockItemStatus",
		&TransactionArgs{TransactionHash: ref},
		status,
	)
	if err != nil {
		return nil, rpcError("getBlockItemStatus", err)
	}
	return status, nil
}

func (c *client) GetModuleSource(ctx context.Context, ref module.Ref) ([]byte, error) {
	resp := new(ModuleSourceReply)
	err := c.req.SendRequest(ctx,
		ServiceName+".getModuleSource",
		&ModuleSourceArgs{ModuleRef: ref},
		resp,
	)
	if err != nil {
		return nil, rpcError("getModuleSource", err)
	}
	if !resp.Found {
		return nil, nil
	}
	source, err := formatting.Decode(formatting.HexNC, resp.Source)
	if err != nil {
		return nil, rpcError("getModuleSource", err)
	}
	return source, nil
}

func (c *client) InvokeContract(ctx context.Context, req *InvokeRequest) (*InvokeResult, error) {
	param, err := formatting.Encode(formatting.HexNC, req.Parameter)
	if err != nil {
		return nil, err
	}
	resp := new(InvokeContractReply)
	err = c.req.SendRequest(ctx,
		ServiceName+".invokeContract",
		&InvokeContractArgs{
			Contract:  req.Contract,
			Method:    req.Method,
			Parameter: param,
			Invoker:   req.Invoker,
			Amount:    json.Uint64(req.Amount),
			Energy:    json.Uint64(req.Energy),
		},
		resp,
	)
	if err != nil {
		return nil, rpcError("invokeContract", err)
	}
	result := &InvokeResult{
		Tag:        resp.Tag,
		UsedEnergy: uint64(resp.UsedEnergy),
		Reason:     resp.Reason,
	}
	if resp.ReturnValue != "" {
		result.ReturnValue, err = formatting.Decode(formatting.HexNC, resp.ReturnValue)
		if err != nil {
			return nil, rpcError("invokeContract", err)
		}
	}
	return result, nil
}

func (c *client) GetInstanceInfo(ctx context.Context, addr ContractAddress) (*InstanceInfo, error) {
	info := new(InstanceInfo)
	err := c.req.SendRequest(ctx,
		ServiceName+".getInstanceInfo",
		&InstanceInfoArgs{Contract: addr},
		info,
	)
	if err != nil {
		return nil, rpcError("getInstanceInfo", err)
	}
	return info, nil
}

func rpcError(method string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrRPC, method, err)
}
