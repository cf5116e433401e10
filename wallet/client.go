// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/contracttools/chain"
)

var _ Connection = &client{}

// NewClient returns a Connection to a wallet exposing the JSON-RPC signing API at [uri].
func NewClient(uri string) Connection {
	req := rpc.NewEndpointRequester(uri)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (c *client) SignAndSendTransaction(
	ctx context.Context,
	sender string,
	payload Payload,
	params *TypedParameters,
) (chain.TransactionRef, error) {
	args, err := EncodeArgs(sender, payload, params)
	if err != nil {
		return "", err
	}
	resp := new(SignAndSendReply)
	err = c.req.SendRequest(ctx,
		ServiceName+".signAndSendTransaction",
		args,
		resp,
	)
	if err != nil {
		return "", fmt.Errorf("%w: signAndSendTransaction: %v", chain.ErrRPC, err)
	}
	return resp.TransactionHash, nil
}
