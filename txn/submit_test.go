// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txn

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/wallet"
)

var testSender = chain.AccountAddress{1, 2, 3}.String()

type recordingConn struct {
	sender  string
	payload wallet.Payload
	params  *wallet.TypedParameters
	calls   int
	err     error
}

func (c *recordingConn) SignAndSendTransaction(
	_ context.Context,
	sender string,
	payload wallet.Payload,
	params *wallet.TypedParameters,
) (chain.TransactionRef, error) {
	c.calls++
	c.sender, c.payload, c.params = sender, payload, params
	if c.err != nil {
		return "", c.err
	}
	return "0xabc", nil
}

func TestParseParameter(t *testing.T) {
	tests := []struct {
		kind    ParameterKind
		raw     string
		want    string
		wantErr bool
	}{
		{KindNumber, "1000000", "1000000", false},
		{KindNumber, " 4.5 ", "4.5", false},
		{KindNumber, "12abc", "", true},
		{KindNumber, `"1"`, "", true},
		{KindString, "myString", `"myString"`, false},
		{KindString, "", `""`, false},
		{KindObject, "{\n  \"a\": [1, 2]\n}", `{"a":[1,2]}`, false},
		{KindObject, "[1]", "", true},
		{KindObject, "null", "", true},
		{KindArray, `[ "abc", "def" ]`, `["abc","def"]`, false},
		{KindArray, `{"a":1}`, "", true},
		{ParameterKind(9), "1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String()+"/"+tt.raw, func(t *testing.T) {
			require := require.New(t)
			got, err := ParseParameter(tt.kind, tt.raw)
			if tt.wantErr {
				require.ErrorIs(err, ErrValidation)
				return
			}
			require.NoError(err)
			require.Equal(tt.want, string(got))
		})
	}
}

func TestParseParameterKind(t *testing.T) {
	require := require.New(t)

	for _, name := range []string{"number", "string", "object", "array"} {
		kind, err := ParseParameterKind(name)
		require.NoError(err)
		require.Equal(name, kind.String())
	}
	_, err := ParseParameterKind("bool")
	require.ErrorIs(err, ErrValidation)

	var kind ParameterKind
	require.NoError(json.Unmarshal([]byte(`"array"`), &kind))
	require.Equal(KindArray, kind)
}

func TestSchemaSourceResolve(t *testing.T) {
	require := require.New(t)

	schema, err := SchemaSource{Schema: "AQID"}.Resolve()
	require.NoError(err)
	require.Equal("AQID", schema)

	_, err = SchemaSource{}.Resolve()
	require.ErrorIs(err, ErrMissingSchema)
	require.Contains(err.Error(), "set schema")

	_, err = SchemaSource{Derived: true}.Resolve()
	require.ErrorIs(err, ErrMissingSchema)
	require.Contains(err.Error(), "no embedded module schema found in module")
}

func TestDeploy(t *testing.T) {
	require := require.New(t)

	conn := &recordingConn{}
	s := NewSubmitter(conn)
	source := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	ref, err := s.Deploy(context.Background(), &DeployRequest{Sender: testSender, Source: source})
	require.NoError(err)
	require.Equal(chain.TransactionRef("0xabc"), ref)
	require.Equal(testSender, conn.sender)
	require.Equal(&wallet.DeployModulePayload{Source: source}, conn.payload)
	require.Nil(conn.params)
}

func TestValidationBeforeSigning(t *testing.T) {
	ref := module.RefOf([]byte("module"))
	tests := []struct {
		name    string
		submit  func(*Submitter) error
		wantErr error
	}{
		{
			name: "no sender",
			submit: func(s *Submitter) error {
				_, err := s.Deploy(context.Background(), &DeployRequest{Source: []byte{1}})
				return err
			},
			wantErr: ErrValidation,
		},
		{
			name: "malformed sender",
			submit: func(s *Submitter) error {
				_, err := s.Deploy(context.Background(), &DeployRequest{Sender: "3kBx2h5Y", Source: []byte{1}})
				return err
			},
			wantErr: ErrValidation,
		},
		{
			name: "no module",
			submit: func(s *Submitter) error {
				_, err := s.Deploy(context.Background(), &DeployRequest{Sender: testSender})
				return err
			},
			wantErr: ErrValidation,
		},
		{
			name: "no module reference",
			submit: func(s *Submitter) error {
				_, err := s.Initialize(context.Background(), &InitRequest{Sender: testSender, ContractName: "c"})
				return err
			},
			wantErr: ErrValidation,
		},
		{
			name: "no contract name",
			submit: func(s *Submitter) error {
				_, err := s.Initialize(context.Background(), &InitRequest{Sender: testSender, ModuleRef: ref})
				return err
			},
			wantErr: ErrValidation,
		},
		{
			name: "parameter without schema",
			submit: func(s *Submitter) error {
				_, err := s.Initialize(context.Background(), &InitRequest{
					Sender:       testSender,
					ModuleRef:    ref,
					ContractName: "c",
					Input:        &Input{Kind: KindNumber, Value: "1"},
				})
				return err
			},
			wantErr: ErrMissingSchema,
		},
		{
			name: "no entrypoint",
			submit: func(s *Submitter) error {
				_, err := s.Update(context.Background(), &UpdateRequest{Sender: testSender, ContractName: "c"})
				return err
			},
			wantErr: ErrValidation,
		},
		{
			name: "empty number parameter",
			submit: func(s *Submitter) error {
				_, err := s.Update(context.Background(), &UpdateRequest{
					Sender:       testSender,
					ContractName: "c",
					Entrypoint:   "e",
					Input:        &Input{Kind: KindNumber, Schema: SchemaSource{Schema: "AQID"}},
				})
				return err
			},
			wantErr: ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			conn := &recordingConn{}
			err := tt.submit(NewSubmitter(conn))
			require.ErrorIs(err, tt.wantErr)
			require.Zero(conn.calls)
		})
	}
}

func TestInitializeWithParameter(t *testing.T) {
	require := require.New(t)

	conn := &recordingConn{}
	ref := module.RefOf([]byte("module"))
	_, err := NewSubmitter(conn).Initialize(context.Background(), &InitRequest{
		Sender:       testSender,
		ModuleRef:    ref,
		ContractName: "myToken",
		Amount:       5,
		MaxEnergy:    30000,
		Input: &Input{
			Kind:   KindObject,
			Value:  `{"owner": "me"}`,
			Schema: SchemaSource{Derived: true, Schema: "AQID"},
		},
	})
	require.NoError(err)
	require.Equal(&wallet.InitContractPayload{
		Amount:    5,
		ModuleRef: ref,
		InitName:  "myToken",
		MaxEnergy: 30000,
	}, conn.payload)
	require.Equal(&wallet.TypedParameters{
		Parameters: json.RawMessage(`{"owner":"me"}`),
		Schema:     "AQID",
	}, conn.params)
}

func TestUpdateReceiveName(t *testing.T) {
	require := require.New(t)

	conn := &recordingConn{}
	_, err := NewSubmitter(conn).Update(context.Background(), &UpdateRequest{
		Sender:        testSender,
		ContractIndex: 7,
		ContractName:  "counter",
		Entrypoint:    "increment",
		MaxEnergy:     3000,
	})
	require.NoError(err)
	payload, ok := conn.payload.(*wallet.UpdateContractPayload)
	require.True(ok)
	require.Equal("counter.increment", payload.ReceiveName)
	require.Equal(chain.ContractAddress{Index: 7, Subindex: 0}, payload.Address)
	require.Nil(conn.params)
}

func TestSigningErrorPropagates(t *testing.T) {
	require := require.New(t)

	errRejected := errors.New("user rejected")
	conn := &recordingConn{err: errRejected}
	_, err := NewSubmitter(conn).Deploy(context.Background(), &DeployRequest{Sender: testSender, Source: []byte{1}})
	require.ErrorIs(err, errRejected)
}
