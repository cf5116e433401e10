// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package schema talks to the contract schema codec. Schemas are passed
// around base64 encoded, exactly as they are embedded in a module or
// uploaded by a user; the toolkit never looks inside them.
package schema

import (
	"context"
	"encoding/json"
)

// Codec encodes contract parameters and decodes return values against a schema.
type Codec interface {
	SerializeInitParameter(ctx context.Context, schema, contract string, value json.RawMessage) ([]byte, error)
	SerializeUpdateParameter(ctx context.Context, schema, contract, entrypoint string, value json.RawMessage) ([]byte, error)

	DeserializeReturnValue(ctx context.Context, schema, contract, entrypoint string, returnValue []byte) (json.RawMessage, error)
	// DeserializeError decodes a logic reject using the schema's error type.
	DeserializeError(ctx context.Context, schema, contract, entrypoint string, returnValue []byte) (json.RawMessage, error)

	// InitParameterTemplate returns a JSON template of the init parameter, or
	// the empty string if the schema declares none.
	InitParameterTemplate(ctx context.Context, schema, contract string) (string, error)
	// ReceiveParameterTemplate returns a JSON template of the entrypoint
	// parameter, or the empty string if the schema declares none.
	ReceiveParameterTemplate(ctx context.Context, schema, contract, entrypoint string) (string, error)
}
