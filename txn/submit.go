// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txn validates form input and hands deploy, initialize and update
// transactions to a wallet connection for signing and broadcast.
package txn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/wallet"
)

var (
	ErrValidation    = errors.New("invalid input")
	ErrMissingSchema = errors.New("missing schema")
)

// SchemaSource is where the schema for an input parameter comes from.
type SchemaSource struct {
	// Derived is set when the schema is taken from a module (uploaded in
	// the deploy step or fetched from chain) rather than uploaded directly.
	Derived bool
	// Schema is the base64 encoded schema, empty if unavailable.
	Schema string
}

// Resolve returns the schema or ErrMissingSchema.
func (s SchemaSource) Resolve() (string, error) {
	switch {
	case s.Schema != "":
		return s.Schema, nil
	case s.Derived:
		return "", fmt.Errorf("%w: no embedded module schema found in module", ErrMissingSchema)
	default:
		return "", fmt.Errorf("%w: set schema", ErrMissingSchema)
	}
}

// Input is a declared input parameter.
type Input struct {
	Kind   ParameterKind
	Value  string
	Schema SchemaSource
}

// Resolve validates the parameter and returns it together with its schema.
// The schema is checked first so a missing schema is reported even when the
// value is also absent.
func (in *Input) Resolve() (json.RawMessage, string, error) {
	schema, err := in.Schema.Resolve()
	if err != nil {
		return nil, "", err
	}
	if in.Value == "" && in.Kind != KindString {
		return nil, "", fmt.Errorf("%w: set input parameter", ErrValidation)
	}
	value, err := ParseParameter(in.Kind, in.Value)
	if err != nil {
		return nil, "", err
	}
	return value, schema, nil
}

func (in *Input) typed() (*wallet.TypedParameters, error) {
	if in == nil {
		return nil, nil
	}
	value, schema, err := in.Resolve()
	if err != nil {
		return nil, err
	}
	return &wallet.TypedParameters{Parameters: value, Schema: schema}, nil
}

type DeployRequest struct {
	Sender string
	Source []byte
}

type InitRequest struct {
	Sender    string
	ModuleRef module.Ref
	// ContractName is the name without the init_ prefix.
	ContractName string
	Amount       uint64
	MaxEnergy    uint64
	// Input is nil when the contract takes no parameter.
	Input *Input
}

type UpdateRequest struct {
	Sender        string
	ContractIndex uint64
	ContractName  string
	Entrypoint    string
	Amount        uint64
	MaxEnergy     uint64
	Input         *Input
}

// Submitter builds payloads and delegates signing to a wallet connection.
type Submitter struct {
	conn wallet.Connection
	log  log.Logger
}

func NewSubmitter(conn wallet.Connection) *Submitter {
	return &Submitter{
		conn: conn,
		log:  log.New("module", "txn"),
	}
}

func (s *Submitter) Deploy(ctx context.Context, req *DeployRequest) (chain.TransactionRef, error) {
	if err := ValidateSender(req.Sender); err != nil {
		return "", err
	}
	if len(req.Source) == 0 {
		return "", fmt.Errorf("%w: upload a smart contract module first", ErrValidation)
	}
	return s.send(ctx, req.Sender, &wallet.DeployModulePayload{Source: req.Source}, nil)
}

func (s *Submitter) Initialize(ctx context.Context, req *InitRequest) (chain.TransactionRef, error) {
	if err := ValidateSender(req.Sender); err != nil {
		return "", err
	}
	if req.ModuleRef.IsZero() {
		return "", fmt.Errorf("%w: set module reference", ErrValidation)
	}
	if req.ContractName == "" {
		return "", fmt.Errorf("%w: set smart contract name", ErrValidation)
	}
	params, err := req.Input.typed()
	if err != nil {
		return "", err
	}
	payload := &wallet.InitContractPayload{
		Amount:    req.Amount,
		ModuleRef: req.ModuleRef,
		InitName:  req.ContractName,
		MaxEnergy: req.MaxEnergy,
	}
	return s.send(ctx, req.Sender, payload, params)
}

func (s *Submitter) Update(ctx context.Context, req *UpdateRequest) (chain.TransactionRef, error) {
	if err := ValidateSender(req.Sender); err != nil {
		return "", err
	}
	if req.ContractName == "" {
		return "", fmt.Errorf("%w: set smart contract name", ErrValidation)
	}
	if req.Entrypoint == "" {
		return "", fmt.Errorf("%w: set entry point name", ErrValidation)
	}
	params, err := req.Input.typed()
	if err != nil {
		return "", err
	}
	payload := &wallet.UpdateContractPayload{
		Amount:      req.Amount,
		Address:     chain.NewContractAddress(req.ContractIndex),
		ReceiveName: req.ContractName + "." + req.Entrypoint,
		MaxEnergy:   req.MaxEnergy,
	}
	return s.send(ctx, req.Sender, payload, params)
}

func (s *Submitter) send(
	ctx context.Context,
	sender string,
	payload wallet.Payload,
	params *wallet.TypedParameters,
) (chain.TransactionRef, error) {
	ref, err := s.conn.SignAndSendTransaction(ctx, sender, payload, params)
	if err != nil {
		s.log.Warn("signing failed", "kind", payload.Kind(), "sender", sender, "error", err)
		return "", err
	}
	s.log.Info("transaction submitted", "kind", payload.Kind(), "txRef", ref)
	return ref, nil
}

// ValidateSender checks that [sender] is a well formed account address.
func ValidateSender(sender string) error {
	if sender == "" {
		return fmt.Errorf("%w: connect an account first", ErrValidation)
	}
	if _, err := chain.ParseAccountAddress(sender); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
