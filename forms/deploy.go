// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package forms

import (
	"context"
	"sync"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/txn"
	"github.com/ava-labs/contracttools/watcher"
)

// DeployForm uploads a module and deploys it.
type DeployForm struct {
	*tracker
	submitter *txn.Submitter

	moduleLock sync.RWMutex
	source     []byte
	info       *module.Info
}

func NewDeployForm(deps Deps) *DeployForm {
	return &DeployForm{
		tracker:   newTracker(DeployKind, deps),
		submitter: txn.NewSubmitter(deps.Wallet),
	}
}

// Upload inspects [source] and replaces any previously uploaded module.
func (f *DeployForm) Upload(ctx context.Context, source []byte) (State, error) {
	f.begin(nil)
	f.setModule(nil, nil)

	info, err := f.deps.Inspector.Inspect(ctx, source)
	if err != nil {
		return f.fail(err)
	}
	f.setModule(source, info)

	onChain, err := f.deps.Chain.GetModuleSource(ctx, info.Ref)
	if err != nil {
		return f.fail(err)
	}
	return f.update(func(s *State) {
		applyInfo(s, info)
		if !info.HasEmbeddedSchema() {
			s.warn(WarnNoEmbeddedSchema)
		}
		if onChain != nil {
			s.AlreadyDeployed = true
			s.warn(WarnAlreadyDeployed)
		}
	}), nil
}

// Submit deploys the uploaded module on behalf of [sender].
func (f *DeployForm) Submit(ctx context.Context, sender string) (State, error) {
	f.begin(keepModule)

	source, _ := f.Module()
	ref, err := f.submitter.Deploy(ctx, &txn.DeployRequest{Sender: sender, Source: source})
	if err != nil {
		return f.fail(err)
	}
	return f.track(ref, chain.DeployModule, func(s *State, out watcher.Outcome) {
		if out.Summary != nil && out.Summary.ModuleDeployed != nil {
			s.ModuleRef = out.Summary.ModuleDeployed.String()
		}
		s.AlreadyDeployed = true
	})
}

// Module returns the uploaded module and what was learned about it.
func (f *DeployForm) Module() ([]byte, *module.Info) {
	f.moduleLock.RLock()
	defer f.moduleLock.RUnlock()

	return f.source, f.info
}

func (f *DeployForm) setModule(source []byte, info *module.Info) {
	f.moduleLock.Lock()
	defer f.moduleLock.Unlock()

	f.source, f.info = source, info
}

func applyInfo(s *State, info *module.Info) {
	s.ModuleRef = info.Ref.String()
	s.ContractNames = append([]string(nil), info.ContractNames...)
	s.EmbeddedSchema = info.EmbeddedSchema
	s.ReproducibleBuild = info.ReproducibleBuild
}

// keepModule carries the inspection results over to a new submission.
func keepModule(prev State, next *State) {
	next.ModuleRef = prev.ModuleRef
	next.ContractNames = prev.ContractNames
	next.EmbeddedSchema = prev.EmbeddedSchema
	next.ReproducibleBuild = prev.ReproducibleBuild
	next.AlreadyDeployed = prev.AlreadyDeployed
	for _, w := range prev.Warnings {
		if w == WarnNoEmbeddedSchema || w == WarnAlreadyDeployed {
			next.warn(w)
		}
	}
}
