// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package forms

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/txn"
)

// target is the contract entrypoint an update or read addresses.
type target struct {
	index      uint64
	contract   string
	entrypoint string
	schema     txn.SchemaSource
}

type targetInput struct {
	ContractIndex   string
	ContractName    string
	Entrypoint      string
	DeriveFromChain bool
	UploadedSchema  string
	HasParameter    bool
}

func parseIndex(raw string) (uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("%w: set smart contract index", txn.ErrValidation)
	}
	return txn.ParseUint("smart contract index", raw, 0)
}

// resolveTarget validates the addressing fields, optionally deriving them
// from the instance on chain, and records what it learned in the form state.
func (t *tracker) resolveTarget(ctx context.Context, in targetInput) (*target, error) {
	index, err := parseIndex(in.ContractIndex)
	if err != nil {
		return nil, err
	}
	tg := &target{
		index:      index,
		contract:   in.ContractName,
		entrypoint: in.Entrypoint,
		schema:     txn.SchemaSource{Derived: in.DeriveFromChain, Schema: in.UploadedSchema},
	}

	if in.DeriveFromChain {
		view, err := t.deriveInstance(ctx, index)
		if err != nil {
			return nil, err
		}
		tg.contract = view.contract
		tg.schema.Schema = view.info.EmbeddedSchema
		t.update(func(s *State) {
			s.ModuleRef = view.info.Ref.String()
			s.ContractNames = []string{view.contract}
			s.Entrypoints = view.entrypoints
			s.EmbeddedSchema = view.info.EmbeddedSchema
			s.ReproducibleBuild = view.info.ReproducibleBuild
			if in.Entrypoint != "" && !contains(view.entrypoints, in.Entrypoint) {
				s.warn(WarnUnknownEntrypoint)
			}
		})
	}

	if tg.contract == "" {
		return nil, fmt.Errorf("%w: set smart contract name", txn.ErrValidation)
	}
	if tg.entrypoint == "" {
		return nil, fmt.Errorf("%w: set entry point name", txn.ErrValidation)
	}

	if schema, err := tg.schema.Resolve(); err == nil {
		template, err := t.deps.Codec.ReceiveParameterTemplate(ctx, schema, tg.contract, tg.entrypoint)
		if err != nil {
			t.log.Debug("no receive parameter template", "contract", tg.contract, "entrypoint", tg.entrypoint, "error", err)
		}
		t.update(func(s *State) {
			s.ParameterTemplate = template
			if template != "" && !in.HasParameter {
				s.warn(WarnUndeclaredParam)
			}
		})
	}
	return tg, nil
}

type instanceView struct {
	contract    string
	entrypoints []string
	info        *module.Info
}

// deriveInstance looks up the instance at [index] and inspects its module.
func (t *tracker) deriveInstance(ctx context.Context, index uint64) (*instanceView, error) {
	inst, err := t.deps.Chain.GetInstanceInfo(ctx, chain.NewContractAddress(index))
	if err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(inst.Name, module.InitPrefix)
	entrypoints := make([]string, 0, len(inst.Methods))
	for _, m := range inst.Methods {
		entrypoints = append(entrypoints, strings.TrimPrefix(m, name+"."))
	}
	sort.Strings(entrypoints)

	source, err := t.deps.Chain.GetModuleSource(ctx, inst.SourceModule)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("%w: module %s of contract %d not found on chain", txn.ErrValidation, inst.SourceModule, index)
	}
	info, err := t.deps.Inspector.Inspect(ctx, source)
	if err != nil {
		return nil, err
	}
	return &instanceView{contract: name, entrypoints: entrypoints, info: info}, nil
}
