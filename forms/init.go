// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package forms

import (
	"context"
	"fmt"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/txn"
	"github.com/ava-labs/contracttools/watcher"
)

// DeriveMode selects where contract names and schema come from.
type DeriveMode string

const (
	DontDerive      DeriveMode = "none"
	DeriveFromStep1 DeriveMode = "step1"
	DeriveFromChain DeriveMode = "chain"
)

// ParameterInput is an input parameter as typed by the user.
type ParameterInput struct {
	Kind  txn.ParameterKind `json:"kind"`
	Value string            `json:"value"`
}

type InitInput struct {
	Sender       string     `json:"sender"`
	ModuleRef    string     `json:"moduleRef"`
	ContractName string     `json:"contractName"`
	Amount       string     `json:"amount,omitempty"`
	MaxEnergy    string     `json:"maxEnergy,omitempty"`
	Derive       DeriveMode `json:"derive,omitempty"`
	// Parameter is nil when the contract takes no input parameter.
	Parameter      *ParameterInput `json:"parameter,omitempty"`
	UploadedSchema string          `json:"uploadedSchema,omitempty"`
}

// InitForm creates a contract instance from a deployed module.
type InitForm struct {
	*tracker
	submitter *txn.Submitter
	step1     *DeployForm
}

// NewInitForm returns an initialize form. [step1] supplies the module for
// DeriveFromStep1 and may be nil.
func NewInitForm(deps Deps, step1 *DeployForm) *InitForm {
	return &InitForm{
		tracker:   newTracker(InitializeKind, deps),
		submitter: txn.NewSubmitter(deps.Wallet),
		step1:     step1,
	}
}

// Derive fills in contract names, embedded schema and parameter template
// without submitting anything.
func (f *InitForm) Derive(ctx context.Context, in *InitInput) (State, error) {
	f.begin(nil)
	if _, err := f.prepare(ctx, in); err != nil {
		return f.fail(err)
	}
	return f.State(), nil
}

// Submit initializes a contract instance and starts watching the transaction.
func (f *InitForm) Submit(ctx context.Context, in *InitInput) (State, error) {
	f.begin(nil)
	req, err := f.prepare(ctx, in)
	if err != nil {
		return f.fail(err)
	}
	ref, err := f.submitter.Initialize(ctx, req)
	if err != nil {
		return f.fail(err)
	}
	return f.track(ref, chain.InitContract, func(s *State, out watcher.Outcome) {
		if out.Summary != nil && out.Summary.ContractInitialized != nil {
			idx := out.Summary.ContractInitialized.Address.Index
			s.ContractIndex = &idx
		}
	})
}

func (f *InitForm) prepare(ctx context.Context, in *InitInput) (*txn.InitRequest, error) {
	ref, err := txn.ParseModuleRef(in.ModuleRef)
	if err != nil {
		return nil, err
	}
	amount, err := txn.ParseUint("amount", in.Amount, 0)
	if err != nil {
		return nil, err
	}
	maxEnergy, err := txn.ParseUint("max execution energy", in.MaxEnergy, txn.DefaultMaxEnergy)
	if err != nil {
		return nil, err
	}

	mode := in.Derive
	if mode == "" {
		mode = DontDerive
	}
	info, err := f.resolveModule(ctx, ref, mode)
	if err != nil {
		return nil, err
	}

	source := txn.SchemaSource{Derived: mode != DontDerive, Schema: in.UploadedSchema}
	if info != nil {
		source.Schema = info.EmbeddedSchema
		f.update(func(s *State) {
			s.ContractNames = append([]string(nil), info.ContractNames...)
			s.EmbeddedSchema = info.EmbeddedSchema
			s.ReproducibleBuild = info.ReproducibleBuild
			if !contains(info.ContractNames, in.ContractName) && in.ContractName != "" {
				s.warn(WarnUnknownContract)
			}
		})
	}

	if schema, err := source.Resolve(); err == nil && in.ContractName != "" {
		template, err := f.deps.Codec.InitParameterTemplate(ctx, schema, in.ContractName)
		if err != nil {
			f.log.Debug("no init parameter template", "contract", in.ContractName, "error", err)
		}
		f.update(func(s *State) {
			s.ParameterTemplate = template
			if template != "" && in.Parameter == nil {
				s.warn(WarnUndeclaredParam)
			}
		})
	}

	req := &txn.InitRequest{
		Sender:       in.Sender,
		ModuleRef:    ref,
		ContractName: in.ContractName,
		Amount:       amount,
		MaxEnergy:    maxEnergy,
	}
	if in.Parameter != nil {
		req.Input = &txn.Input{Kind: in.Parameter.Kind, Value: in.Parameter.Value, Schema: source}
	}
	return req, nil
}

// resolveModule checks that [ref] is on chain and returns the module info the
// mode derives from, or nil for DontDerive. Problems that do not prevent
// submission are recorded as warnings.
func (f *InitForm) resolveModule(ctx context.Context, ref module.Ref, mode DeriveMode) (*module.Info, error) {
	f.update(func(s *State) { s.ModuleRef = ref.String() })

	onChain, err := f.deps.Chain.GetModuleSource(ctx, ref)
	if err != nil {
		return nil, err
	}
	if onChain == nil {
		f.update(func(s *State) { s.warn(WarnNotOnChain) })
	}

	switch mode {
	case DontDerive:
		return nil, nil
	case DeriveFromStep1:
		var info *module.Info
		if f.step1 != nil {
			_, info = f.step1.Module()
		}
		if info == nil {
			return nil, fmt.Errorf("%w: %v", txn.ErrValidation, errNotInspected)
		}
		if info.Ref != ref {
			f.update(func(s *State) { s.warn(WarnRefMismatch) })
		}
		return info, nil
	case DeriveFromChain:
		if onChain == nil {
			return nil, fmt.Errorf("%w: module %s not found on chain", txn.ErrValidation, ref)
		}
		return f.deps.Inspector.Inspect(ctx, onChain)
	default:
		return nil, fmt.Errorf("%w: unknown derive option %q", txn.ErrValidation, mode)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
