// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chaintest

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/module/moduletest"
	"github.com/ava-labs/contracttools/schema"
	"github.com/ava-labs/contracttools/wallet"
)

var sender = chain.AccountAddress{1}.String()

type testEnv struct {
	node   *Node
	chain  chain.Client
	wallet wallet.Connection
	codec  *schema.RemoteCodec
}

func newTestEnv(t *testing.T) *testEnv {
	node := NewNode(Config{})
	handler, err := node.Handler()
	require.NoError(t, err)
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
		require.NoError(t, node.Close())
	})
	return &testEnv{
		node:   node,
		chain:  chain.NewClient(server.URL),
		wallet: wallet.NewClient(server.URL),
		codec:  schema.NewRemoteCodec(server.URL),
	}
}

// finalize polls until the transaction is finalized.
func (e *testEnv) finalize(t *testing.T, ref chain.TransactionRef) *chain.BlockItemSummary {
	t.Helper()
	for i := 0; i < DefaultFinalizeAfter; i++ {
		status, err := e.chain.GetBlockItemStatus(context.Background(), ref)
		require.NoError(t, err)
		if status.Finalized() {
			require.Equal(t, DefaultFinalizeAfter-1, i)
			require.NotNil(t, status.Outcome)
			return status.Outcome
		}
		require.Equal(t, chain.StatusCommitted, status.Status)
	}
	t.Fatalf("transaction %s not finalized", ref)
	return nil
}

func TestContractLifecycle(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	source := CounterModule()
	ref := module.RefOf(source)

	txRef, err := env.wallet.SignAndSendTransaction(ctx, sender, &wallet.DeployModulePayload{Source: source}, nil)
	require.NoError(err)
	summary := env.finalize(t, txRef)
	require.Equal(chain.AccountTransaction, summary.Type)
	require.Equal(chain.DeployModule, summary.TransactionType)
	require.Equal(sender, summary.Sender)
	require.NotNil(summary.ModuleDeployed)
	require.Equal(ref, *summary.ModuleDeployed)
	require.Nil(summary.RejectReason)

	onChain, err := env.chain.GetModuleSource(ctx, ref)
	require.NoError(err)
	require.Equal(source, onChain)

	txRef, err = env.wallet.SignAndSendTransaction(ctx, sender,
		&wallet.InitContractPayload{ModuleRef: ref, InitName: "counter", Amount: 7, MaxEnergy: 30000},
		&wallet.TypedParameters{Parameters: json.RawMessage(`{ "count": 1 }`), Schema: CounterSchema.Encode()},
	)
	require.NoError(err)
	summary = env.finalize(t, txRef)
	require.Equal(chain.InitContract, summary.TransactionType)
	require.NotNil(summary.ContractInitialized)
	addr := summary.ContractInitialized.Address
	require.Equal(chain.NewContractAddress(0), addr)
	require.Equal("init_counter", summary.ContractInitialized.InitName)
	require.Equal(uint64(7), summary.ContractInitialized.Amount)

	info, err := env.chain.GetInstanceInfo(ctx, addr)
	require.NoError(err)
	require.Equal("init_counter", info.Name)
	require.Equal([]string{"counter.increment", "counter.view"}, info.Methods)
	require.Equal(ref, info.SourceModule)
	require.Equal(sender, info.Owner)
	require.Equal(uint64(7), info.Amount)

	result, err := env.chain.InvokeContract(ctx, &chain.InvokeRequest{Contract: addr, Method: "counter.view"})
	require.NoError(err)
	require.Equal(chain.InvokeSuccess, result.Tag)
	require.Equal(`{"count":1}`, string(result.ReturnValue))

	txRef, err = env.wallet.SignAndSendTransaction(ctx, sender,
		&wallet.UpdateContractPayload{Address: addr, ReceiveName: "counter.increment", Param: []byte("5"), Amount: 3},
		nil,
	)
	require.NoError(err)
	summary = env.finalize(t, txRef)
	require.Equal(chain.Update, summary.TransactionType)
	require.Equal(&addr, summary.ContractUpdated)

	result, err = env.chain.InvokeContract(ctx, &chain.InvokeRequest{Contract: addr, Method: "counter.view"})
	require.NoError(err)
	require.Equal("5", string(result.ReturnValue))

	info, err = env.chain.GetInstanceInfo(ctx, addr)
	require.NoError(err)
	require.Equal(uint64(10), info.Amount)
}

func TestRejectedTransactions(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	source := CounterModule()
	ref := module.RefOf(source)

	first, err := env.wallet.SignAndSendTransaction(ctx, sender, &wallet.DeployModulePayload{Source: source}, nil)
	require.NoError(err)
	second, err := env.wallet.SignAndSendTransaction(ctx, sender, &wallet.DeployModulePayload{Source: source}, nil)
	require.NoError(err)
	require.NotEqual(first, second)

	require.Nil(env.finalize(t, first).RejectReason)
	summary := env.finalize(t, second)
	require.Equal(chain.Failed, summary.TransactionType)
	require.Equal(TagModuleHashAlreadyExists, summary.RejectReason.Tag)

	tests := []struct {
		name    string
		payload wallet.Payload
		tag     string
	}{
		{
			name:    "malformed module",
			payload: &wallet.DeployModulePayload{Source: []byte{0x00, 0x61, 0x73, 0x6d, 0xff}},
			tag:     TagModuleNotWF,
		},
		{
			name:    "unknown module",
			payload: &wallet.InitContractPayload{ModuleRef: module.RefOf([]byte("missing")), InitName: "counter"},
			tag:     TagInvalidModuleReference,
		},
		{
			name:    "unknown contract",
			payload: &wallet.InitContractPayload{ModuleRef: ref, InitName: "token"},
			tag:     TagInvalidInitMethod,
		},
		{
			name:    "unknown instance",
			payload: &wallet.UpdateContractPayload{Address: chain.NewContractAddress(42), ReceiveName: "counter.view"},
			tag:     TagInvalidContractAddress,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txRef, err := env.wallet.SignAndSendTransaction(ctx, sender, tt.payload, nil)
			require.NoError(err)
			summary := env.finalize(t, txRef)
			require.Equal(chain.Failed, summary.TransactionType)
			require.Equal(tt.tag, summary.RejectReason.Tag)
			require.False(summary.RejectReason.IsLogicReject())
		})
	}
}

func TestLogicRejects(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	source := CounterModule()

	txRef, err := env.wallet.SignAndSendTransaction(ctx, sender, &wallet.DeployModulePayload{Source: source}, nil)
	require.NoError(err)
	env.finalize(t, txRef)
	txRef, err = env.wallet.SignAndSendTransaction(ctx, sender,
		&wallet.InitContractPayload{ModuleRef: module.RefOf(source), InitName: "counter"}, nil)
	require.NoError(err)
	addr := env.finalize(t, txRef).ContractInitialized.Address

	env.node.RejectNext(-3, []byte(`"Unauthorized"`))
	txRef, err = env.wallet.SignAndSendTransaction(ctx, sender,
		&wallet.UpdateContractPayload{Address: addr, ReceiveName: "counter.increment"}, nil)
	require.NoError(err)
	reason := env.finalize(t, txRef).RejectReason
	require.Equal(chain.RejectedReceive, reason.Tag)
	require.Equal(int32(-3), reason.RejectReason)

	env.node.RejectNext(-1, []byte(`"Unauthorized"`))
	result, err := env.chain.InvokeContract(ctx, &chain.InvokeRequest{Contract: addr, Method: "counter.view"})
	require.NoError(err)
	require.Equal(chain.InvokeFailure, result.Tag)
	require.Equal(chain.RejectedReceive, result.Reason.Tag)
	require.Equal(int32(-1), result.Reason.RejectReason)
	require.Equal(`"Unauthorized"`, string(result.ReturnValue))

	result, err = env.chain.InvokeContract(ctx, &chain.InvokeRequest{Contract: addr, Method: "counter.missing"})
	require.NoError(err)
	require.Equal(chain.InvokeFailure, result.Tag)
	require.Equal(TagInvalidReceiveMethod, result.Reason.Tag)
}

func TestSubmitErrors(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.wallet.SignAndSendTransaction(ctx, "not-an-address", &wallet.DeployModulePayload{Source: CounterModule()}, nil)
	require.ErrorIs(err, chain.ErrRPC)
	require.Contains(err.Error(), errInvalidSender.Error())

	_, err = env.wallet.SignAndSendTransaction(ctx, sender,
		&wallet.InitContractPayload{InitName: "token"},
		&wallet.TypedParameters{Parameters: json.RawMessage(`1`), Schema: CounterSchema.Encode()},
	)
	require.ErrorIs(err, chain.ErrRPC)
	require.Contains(err.Error(), errInvalidParam.Error())

	_, err = env.chain.GetBlockItemStatus(ctx, "abcd")
	require.ErrorIs(err, chain.ErrRPC)
	require.Contains(err.Error(), errUnknownTx.Error())

	_, err = env.chain.GetInstanceInfo(ctx, chain.NewContractAddress(9))
	require.ErrorIs(err, chain.ErrRPC)

	source, err := env.chain.GetModuleSource(ctx, module.RefOf([]byte("missing")))
	require.NoError(err)
	require.Nil(source)
}

func TestBuildBlock(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	node := NewNode(Config{FinalizeAfter: 1})
	defer node.Close()

	built, err := node.BuildBlock(ctx)
	require.NoError(err)
	require.Zero(built)

	for i := 0; i < 3; i++ {
		source := moduletest.Build([]string{"init_c" + string(rune('a'+i))})
		_, err := node.Submit(ctx, sender, &wallet.DeployModulePayload{Source: source}, nil)
		require.NoError(err)
	}
	built, err = node.BuildBlock(ctx)
	require.NoError(err)
	require.Equal(3, built)
}

func TestRemoteSchemaCodec(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	encoded := CounterSchema.Encode()

	template, err := env.codec.InitParameterTemplate(ctx, encoded, "counter")
	require.NoError(err)
	require.Equal(`{"count":"<UInt64>"}`, template)

	template, err = env.codec.ReceiveParameterTemplate(ctx, encoded, "counter", "increment")
	require.NoError(err)
	require.Equal(`"<UInt64>"`, template)

	template, err = env.codec.ReceiveParameterTemplate(ctx, encoded, "counter", "view")
	require.NoError(err)
	require.Empty(template)

	b, err := env.codec.SerializeUpdateParameter(ctx, encoded, "counter", "increment", json.RawMessage(` 4 `))
	require.NoError(err)
	require.Equal("4", string(b))

	value, err := env.codec.DeserializeReturnValue(ctx, encoded, "counter", "view", []byte(`{"count":4}`))
	require.NoError(err)
	require.JSONEq(`{"count":4}`, string(value))

	value, err = env.codec.DeserializeError(ctx, encoded, "counter", "view", []byte(`"Unauthorized"`))
	require.NoError(err)
	require.Equal(`"Unauthorized"`, string(value))

	_, err = env.codec.SerializeUpdateParameter(ctx, encoded, "counter", "view", json.RawMessage(`4`))
	require.ErrorIs(err, schema.ErrCodec)

	_, err = env.codec.InitParameterTemplate(ctx, encoded, "token")
	require.ErrorIs(err, schema.ErrCodec)
	require.Contains(err.Error(), errNoContract.Error())
}
