// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package forms

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/txn"
)

var errInvokeFailed = errors.New("invocation failed")

type ReadInput struct {
	ContractIndex   string          `json:"contractIndex"`
	ContractName    string          `json:"contractName,omitempty"`
	Entrypoint      string          `json:"entrypoint"`
	DeriveFromChain bool            `json:"deriveFromChain,omitempty"`
	Parameter       *ParameterInput `json:"parameter,omitempty"`
	UploadedSchema  string          `json:"uploadedSchema,omitempty"`
	// Invoker is an optional account the invocation runs as.
	Invoker string `json:"invoker,omitempty"`
}

// ReadForm invokes an entrypoint without a transaction. It has no
// lifecycle: the result is available when Submit returns.
type ReadForm struct {
	*tracker
}

func NewReadForm(deps Deps) *ReadForm {
	return &ReadForm{tracker: newTracker(ReadKind, deps)}
}

func (f *ReadForm) Submit(ctx context.Context, in *ReadInput) (State, error) {
	f.begin(nil)

	tg, err := f.resolveTarget(ctx, targetInput{
		ContractIndex:   in.ContractIndex,
		ContractName:    in.ContractName,
		Entrypoint:      in.Entrypoint,
		DeriveFromChain: in.DeriveFromChain,
		UploadedSchema:  in.UploadedSchema,
		HasParameter:    in.Parameter != nil,
	})
	if err != nil {
		return f.fail(err)
	}

	var param []byte
	if in.Parameter != nil {
		input := &txn.Input{Kind: in.Parameter.Kind, Value: in.Parameter.Value, Schema: tg.schema}
		value, schema, err := input.Resolve()
		if err != nil {
			return f.fail(err)
		}
		param, err = f.deps.Codec.SerializeUpdateParameter(ctx, schema, tg.contract, tg.entrypoint, value)
		if err != nil {
			return f.fail(err)
		}
	}

	res, err := f.deps.Chain.InvokeContract(ctx, &chain.InvokeRequest{
		Contract:  chain.NewContractAddress(tg.index),
		Method:    tg.contract + "." + tg.entrypoint,
		Parameter: param,
		Invoker:   in.Invoker,
	})
	if err != nil {
		return f.fail(err)
	}

	schema, schemaErr := tg.schema.Resolve()
	if res.Tag != chain.InvokeSuccess {
		reason := f.describeReject(ctx, schema, tg, res)
		return f.fail(fmt.Errorf("%w: %s.%s of contract %d: %s",
			errInvokeFailed, tg.contract, tg.entrypoint, tg.index, reason))
	}

	var value json.RawMessage
	if schemaErr != nil {
		// without a schema the raw bytes are all there is
		value, err = json.Marshal(hex.EncodeToString(res.ReturnValue))
	} else {
		value, err = f.deps.Codec.DeserializeReturnValue(ctx, schema, tg.contract, tg.entrypoint, res.ReturnValue)
	}
	if err != nil {
		return f.fail(err)
	}
	return f.update(func(s *State) { s.ReturnValue = value }), nil
}

// describeReject prefers the contract's own error type over the raw code.
func (f *ReadForm) describeReject(ctx context.Context, schema string, tg *target, res *chain.InvokeResult) string {
	reason := res.Reason
	if reason == nil {
		return "no reject reason reported"
	}
	if _, std := chain.StdError(reason.RejectReason); std || !reason.IsLogicReject() || schema == "" || len(res.ReturnValue) == 0 {
		return reason.Describe()
	}
	decoded, err := f.deps.Codec.DeserializeError(ctx, schema, tg.contract, tg.entrypoint, res.ReturnValue)
	if err != nil {
		f.log.Debug("cannot decode error with schema", "error", err)
		return reason.Describe()
	}
	return fmt.Sprintf("%s (code %d)", decoded, reason.RejectReason)
}
