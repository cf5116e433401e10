// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package service exposes the deploy, initialize, update and read forms to a
// front end over JSON-RPC.
package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ava-labs/avalanchego/utils/formatting"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/contracttools/forms"
	"github.com/ava-labs/contracttools/toolchain"
	"github.com/ava-labs/contracttools/txn"
)

// ServiceName is the JSON-RPC namespace of the toolkit API.
const ServiceName = "contracttools"

var errNoToolchain = errors.New("toolchain not configured")

type InspectModuleArgs struct {
	// Source is the hex encoded module file.
	Source string `json:"source"`
}

type DeployArgs struct {
	Sender string `json:"sender"`
}

type FormArgs struct {
	Form forms.Kind `json:"form"`
}

type ToolVersionArgs struct {
	Executable toolchain.Executable `json:"executable"`
}

type ToolVersionReply struct {
	Version string `json:"version"`
}

// Service handlers report form errors in the returned state rather than as
// JSON-RPC errors. Only malformed requests fail.
type Service struct {
	session   *forms.Session
	toolchain *toolchain.Toolchain
	log       log.Logger
}

// New serves [session]. [tc] may be nil, in which case toolVersion fails.
func New(session *forms.Session, tc *toolchain.Toolchain) *Service {
	return &Service{
		session:   session,
		toolchain: tc,
		log:       log.New("module", "service"),
	}
}

// InspectModule uploads a module into the deploy form.
func (s *Service) InspectModule(r *http.Request, args *InspectModuleArgs, reply *forms.State) error {
	source, err := formatting.Decode(formatting.HexNC, args.Source)
	if err != nil {
		return fmt.Errorf("%w: module source is not hex: %v", txn.ErrValidation, err)
	}
	*reply, _ = s.session.Deploy.Upload(r.Context(), source)
	return nil
}

func (s *Service) Deploy(r *http.Request, args *DeployArgs, reply *forms.State) error {
	*reply, _ = s.session.Deploy.Submit(r.Context(), args.Sender)
	return nil
}

func (s *Service) Initialize(r *http.Request, args *forms.InitInput, reply *forms.State) error {
	*reply, _ = s.session.Init.Submit(r.Context(), args)
	return nil
}

// DeriveInitialize fills the initialize form from the chosen module without
// submitting.
func (s *Service) DeriveInitialize(r *http.Request, args *forms.InitInput, reply *forms.State) error {
	*reply, _ = s.session.Init.Derive(r.Context(), args)
	return nil
}

func (s *Service) Update(r *http.Request, args *forms.UpdateInput, reply *forms.State) error {
	*reply, _ = s.session.Update.Submit(r.Context(), args)
	return nil
}

func (s *Service) Read(r *http.Request, args *forms.ReadInput, reply *forms.State) error {
	*reply, _ = s.session.Read.Submit(r.Context(), args)
	return nil
}

func (s *Service) GetFormState(_ *http.Request, args *FormArgs, reply *forms.State) error {
	state, err := s.session.State(args.Form)
	if err != nil {
		return err
	}
	*reply = state
	return nil
}

// Cancel stops watching the form's transaction. The last observed state is
// returned.
func (s *Service) Cancel(_ *http.Request, args *FormArgs, reply *forms.State) error {
	if err := s.session.Cancel(args.Form); err != nil {
		return err
	}
	s.log.Info("watch cancelled", "form", args.Form)
	return s.GetFormState(nil, args, reply)
}

func (s *Service) ToolVersion(r *http.Request, args *ToolVersionArgs, reply *ToolVersionReply) error {
	if s.toolchain == nil {
		return errNoToolchain
	}
	version, err := s.toolchain.Version(r.Context(), args.Executable)
	if err != nil {
		return err
	}
	reply.Version = version
	return nil
}
