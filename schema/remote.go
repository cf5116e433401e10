// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/rpc"
)

// ServiceName is the JSON-RPC namespace of the codec API.
const ServiceName = "schema"

// ErrCodec wraps failures reported by the codec.
var ErrCodec = errors.New("schema codec error")

var _ Codec = &RemoteCodec{}

// Args addresses a contract, and optionally an entrypoint, within a schema.
type Args struct {
	Schema     string `json:"schema"`
	Contract   string `json:"contract"`
	Entrypoint string `json:"entrypoint,omitempty"`
	// Value is the JSON value to serialize.
	Value json.RawMessage `json:"value,omitempty"`
	// Bytes is the hex encoded value to deserialize.
	Bytes string `json:"bytes,omitempty"`
}

type BytesReply struct {
	Bytes string `json:"bytes"`
}

type ValueReply struct {
	Value json.RawMessage `json:"value"`
}

type TemplateReply struct {
	Template string `json:"template"`
}

// RemoteCodec delegates to a codec service over JSON-RPC.
type RemoteCodec struct {
	req rpc.EndpointRequester
}

func NewRemoteCodec(uri string) *RemoteCodec {
	return &RemoteCodec{req: rpc.NewEndpointRequester(uri)}
}

func (c *RemoteCodec) SerializeInitParameter(ctx context.Context, schema, contract string, value json.RawMessage) ([]byte, error) {
	return c.serialize(ctx, "serializeInitParameter", &Args{
		Schema:   schema,
		Contract: contract,
		Value:    value,
	})
}

func (c *RemoteCodec) SerializeUpdateParameter(ctx context.Context, schema, contract, entrypoint string, value json.RawMessage) ([]byte, error) {
	return c.serialize(ctx, "serializeUpdateParameter", &Args{
		Schema:     schema,
		Contract:   contract,
		Entrypoint: entrypoint,
		Value:      value,
	})
}

func (c *RemoteCodec) DeserializeReturnValue(ctx context.Context, schema, contract, entrypoint string, returnValue []byte) (json.RawMessage, error) {
	return c.deserialize(ctx, "deserializeReturnValue", schema, contract, entrypoint, returnValue)
}

func (c *RemoteCodec) DeserializeError(ctx context.Context, schema, contract, entrypoint string, returnValue []byte) (json.RawMessage, error) {
	return c.deserialize(ctx, "deserializeError", schema, contract, entrypoint, returnValue)
}

func (c *RemoteCodec) InitParameterTemplate(ctx context.Context, schema, contract string) (string, error) {
	return c.template(ctx, "initParameterTemplate", &Args{Schema: schema, Contract: contract})
}

func (c *RemoteCodec) ReceiveParameterTemplate(ctx context.Context, schema, contract, entrypoint string) (string, error) {
	return c.template(ctx, "receiveParameterTemplate", &Args{
		Schema:     schema,
		Contract:   contract,
		Entrypoint: entrypoint,
	})
}

func (c *RemoteCodec) serialize(ctx context.Context, method string, args *Args) ([]byte, error) {
	resp := new(BytesReply)
	if err := c.req.SendRequest(ctx, ServiceName+"."+method, args, resp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCodec, method, err)
	}
	return formatting.Decode(formatting.HexNC, resp.Bytes)
}

func (c *RemoteCodec) deserialize(ctx context.Context, method, schema, contract, entrypoint string, b []byte) (json.RawMessage, error) {
	encoded, err := formatting.Encode(formatting.HexNC, b)
	if err != nil {
		return nil, err
	}
	resp := new(ValueReply)
	err = c.req.SendRequest(ctx, ServiceName+"."+method, &Args{
		Schema:     schema,
		Contract:   contract,
		Entrypoint: entrypoint,
		Bytes:      encoded,
	}, resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCodec, method, err)
	}
	return resp.Value, nil
}

func (c *RemoteCodec) template(ctx context.Context, method string, args *Args) (string, error) {
	resp := new(TemplateReply)
	if err := c.req.SendRequest(ctx, ServiceName+"."+method, args, resp); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCodec, method, err)
	}
	return resp.Template, nil
}
