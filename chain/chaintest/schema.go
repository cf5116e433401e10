// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chaintest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ava-labs/contracttools/schema"
)

var (
	errNoContract   = errors.New("contract not in schema")
	errNoEntrypoint = errors.New("entrypoint not in schema")
	errNoType       = errors.New("no type in schema")
	errNotJSON      = errors.New("value is not valid JSON")

	_ schema.Codec = JSONCodec{}
)

// Schema is the schema format understood by the development node. Types
// are given by their parameter templates, and values are encoded as
// compact JSON.
type Schema struct {
	Contracts map[string]*ContractSchema `json:"contracts"`
}

type ContractSchema struct {
	Init        *FunctionSchema            `json:"init,omitempty"`
	Entrypoints map[string]*FunctionSchema `json:"entrypoints,omitempty"`
}

type FunctionSchema struct {
	Parameter   string `json:"parameter,omitempty"`
	ReturnValue string `json:"returnValue,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Encode returns the base64 form carried in a module's schema section.
func (s *Schema) Encode() string {
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// Bytes returns the raw section contents.
func (s *Schema) Bytes() []byte {
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return b
}

// JSONCodec implements schema.Codec for [Schema].
type JSONCodec struct{}

func (JSONCodec) SerializeInitParameter(_ context.Context, encoded, contract string, value json.RawMessage) ([]byte, error) {
	fn, err := lookup(encoded, contract, "")
	if err != nil {
		return nil, err
	}
	return encode(fn.Parameter, value)
}

func (JSONCodec) SerializeUpdateParameter(_ context.Context, encoded, contract, entrypoint string, value json.RawMessage) ([]byte, error) {
	fn, err := lookup(encoded, contract, entrypoint)
	if err != nil {
		return nil, err
	}
	return encode(fn.Parameter, value)
}

func (JSONCodec) DeserializeReturnValue(_ context.Context, encoded, contract, entrypoint string, b []byte) (json.RawMessage, error) {
	fn, err := lookup(encoded, contract, entrypoint)
	if err != nil {
		return nil, err
	}
	return decode(fn.ReturnValue, b)
}

func (JSONCodec) DeserializeError(_ context.Context, encoded, contract, entrypoint string, b []byte) (json.RawMessage, error) {
	fn, err := lookup(encoded, contract, entrypoint)
	if err != nil {
		return nil, err
	}
	return decode(fn.Error, b)
}

func (JSONCodec) InitParameterTemplate(_ context.Context, encoded, contract string) (string, error) {
	fn, err := lookup(encoded, contract, "")
	if err != nil {
		return "", err
	}
	return fn.Parameter, nil
}

func (JSONCodec) ReceiveParameterTemplate(_ context.Context, encoded, contract, entrypoint string) (string, error) {
	fn, err := lookup(encoded, contract, entrypoint)
	if err != nil {
		return "", err
	}
	return fn.Parameter, nil
}

// lookup finds the init function of [contract] when [entrypoint] is empty.
func lookup(encoded, contract, entrypoint string) (*FunctionSchema, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("schema is not base64: %w", err)
	}
	s := &Schema{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("malformed schema: %w", err)
	}
	c, ok := s.Contracts[contract]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errNoContract, contract)
	}
	if entrypoint == "" {
		if c.Init == nil {
			return &FunctionSchema{}, nil
		}
		return c.Init, nil
	}
	fn, ok := c.Entrypoints[entrypoint]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", errNoEntrypoint, contract, entrypoint)
	}
	return fn, nil
}

func encode(typ string, value json.RawMessage) ([]byte, error) {
	if typ == "" {
		return nil, errNoType
	}
	var out bytes.Buffer
	if err := json.Compact(&out, value); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotJSON, err)
	}
	return out.Bytes(), nil
}

func decode(typ string, b []byte) (json.RawMessage, error) {
	if typ == "" {
		return nil, errNoType
	}
	if !json.Valid(b) {
		return nil, errNotJSON
	}
	return json.RawMessage(b), nil
}
