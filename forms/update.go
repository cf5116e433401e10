// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package forms

import (
	"context"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/txn"
)

type UpdateInput struct {
	Sender        string `json:"sender"`
	ContractIndex string `json:"contractIndex"`
	// ContractName may be left empty when deriving from chain.
	ContractName    string          `json:"contractName,omitempty"`
	Entrypoint      string          `json:"entrypoint"`
	Amount          string          `json:"amount,omitempty"`
	MaxEnergy       string          `json:"maxEnergy,omitempty"`
	DeriveFromChain bool            `json:"deriveFromChain,omitempty"`
	Parameter       *ParameterInput `json:"parameter,omitempty"`
	UploadedSchema  string          `json:"uploadedSchema,omitempty"`
}

// UpdateForm calls an entrypoint of an existing contract instance.
type UpdateForm struct {
	*tracker
	submitter *txn.Submitter
}

func NewUpdateForm(deps Deps) *UpdateForm {
	return &UpdateForm{
		tracker:   newTracker(UpdateKind, deps),
		submitter: txn.NewSubmitter(deps.Wallet),
	}
}

func (f *UpdateForm) Submit(ctx context.Context, in *UpdateInput) (State, error) {
	f.begin(nil)

	amount, err := txn.ParseUint("amount", in.Amount, 0)
	if err != nil {
		return f.fail(err)
	}
	maxEnergy, err := txn.ParseUint("max execution energy", in.MaxEnergy, txn.DefaultMaxEnergy)
	if err != nil {
		return f.fail(err)
	}
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

	req := &txn.UpdateRequest{
		Sender:        in.Sender,
		ContractIndex: tg.index,
		ContractName:  tg.contract,
		Entrypoint:    tg.entrypoint,
		Amount:        amount,
		MaxEnergy:     maxEnergy,
	}
	if in.Parameter != nil {
		req.Input = &txn.Input{Kind: in.Parameter.Kind, Value: in.Parameter.Value, Schema: tg.schema}
	}
	ref, err := f.submitter.Update(ctx, req)
	if err != nil {
		return f.fail(err)
	}
	return f.track(ref, chain.Update, nil)
}
