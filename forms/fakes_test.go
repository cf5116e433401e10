// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package forms

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/schema"
	"github.com/ava-labs/contracttools/wallet"
	"github.com/ava-labs/contracttools/watcher"
)

var (
	_ chain.Client      = &fakeChain{}
	_ wallet.Connection = &fakeWallet{}
	_ schema.Codec      = &fakeCodec{}

	testSender = chain.AccountAddress{9}.String()
)

// fakeChain answers status queries from a per-transaction script. Once a
// script is exhausted the last status is repeated.
type fakeChain struct {
	lock      sync.Mutex
	statuses  map[chain.TransactionRef][]*chain.BlockItemStatus
	statusErr error
	polls     map[chain.TransactionRef]int
	modules   map[module.Ref][]byte
	instances map[uint64]*chain.InstanceInfo
	invoke    *chain.InvokeResult
	invoked   *chain.InvokeRequest
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		statuses:  make(map[chain.TransactionRef][]*chain.BlockItemStatus),
		polls:     make(map[chain.TransactionRef]int),
		modules:   make(map[module.Ref][]byte),
		instances: make(map[uint64]*chain.InstanceInfo),
	}
}

func (c *fakeChain) script(ref chain.TransactionRef, statuses ...*chain.BlockItemStatus) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.statuses[ref] = statuses
}

func (c *fakeChain) Polls(ref chain.TransactionRef) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.polls[ref]
}

func (c *fakeChain) GetBlockItemStatus(_ context.Context, ref chain.TransactionRef) (*chain.BlockItemStatus, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.polls[ref]++
	if c.statusErr != nil {
		return nil, c.statusErr
	}
	script := c.statuses[ref]
	if len(script) == 0 {
		return &chain.BlockItemStatus{Status: chain.StatusReceived}, nil
	}
	next := script[0]
	if len(script) > 1 {
		c.statuses[ref] = script[1:]
	}
	return next, nil
}

func (c *fakeChain) GetModuleSource(_ context.Context, ref module.Ref) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.modules[ref], nil
}

func (c *fakeChain) InvokeContract(_ context.Context, req *chain.InvokeRequest) (*chain.InvokeResult, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.invoked = req
	return c.invoke, nil
}

func (c *fakeChain) GetInstanceInfo(_ context.Context, addr chain.ContractAddress) (*chain.InstanceInfo, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	info, ok := c.instances[addr.Index]
	if !ok {
		return nil, fmt.Errorf("%w: no instance %s", chain.ErrRPC, addr)
	}
	return info, nil
}

type sent struct {
	sender  string
	payload wallet.Payload
	params  *wallet.TypedParameters
}

// fakeWallet returns the scripted refs in order.
type fakeWallet struct {
	lock sync.Mutex
	refs []chain.TransactionRef
	sent []sent
}

func (w *fakeWallet) SignAndSendTransaction(
	_ context.Context,
	sender string,
	payload wallet.Payload,
	params *wallet.TypedParameters,
) (chain.TransactionRef, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.sent = append(w.sent, sent{sender: sender, payload: payload, params: params})
	ref := w.refs[0]
	if len(w.refs) > 1 {
		w.refs = w.refs[1:]
	}
	return ref, nil
}

func (w *fakeWallet) Sent() []sent {
	w.lock.Lock()
	defer w.lock.Unlock()

	return append([]sent(nil), w.sent...)
}

// templateSchema is a schema for which the fake codec reports templates.
const templateSchema = "dGVtcGxhdGU="

type fakeCodec struct{}

func (fakeCodec) SerializeInitParameter(_ context.Context, _, _ string, value json.RawMessage) ([]byte, error) {
	return value, nil
}

func (fakeCodec) SerializeUpdateParameter(_ context.Context, _, _, _ string, value json.RawMessage) ([]byte, error) {
	return value, nil
}

func (fakeCodec) DeserializeReturnValue(_ context.Context, _, _, _ string, b []byte) (json.RawMessage, error) {
	return json.RawMessage(fmt.Sprintf(`{"decoded":%q}`, hex.EncodeToString(b))), nil
}

func (fakeCodec) DeserializeError(context.Context, string, string, string, []byte) (json.RawMessage, error) {
	return json.RawMessage(`"Unauthorized"`), nil
}

func (fakeCodec) InitParameterTemplate(_ context.Context, schema, _ string) (string, error) {
	if schema == templateSchema {
		return `{"owner":"<AccountAddress>"}`, nil
	}
	return "", nil
}

func (fakeCodec) ReceiveParameterTemplate(_ context.Context, schema, _, _ string) (string, error) {
	if schema == templateSchema {
		return `"<UInt64>"`, nil
	}
	return "", nil
}

func testDeps(c *fakeChain, w *fakeWallet) Deps {
	return Deps{
		Chain:        c,
		Wallet:       w,
		Codec:        fakeCodec{},
		Inspector:    module.NewIntrospector(),
		Network:      chain.Testnet,
		WatchOptions: []watcher.Option{watcher.WithInterval(time.Millisecond)},
	}
}

func pendingStatus() *chain.BlockItemStatus {
	return &chain.BlockItemStatus{Status: chain.StatusCommitted}
}

func finalizedStatus(summary *chain.BlockItemSummary) *chain.BlockItemStatus {
	summary.Type = chain.AccountTransaction
	return &chain.BlockItemStatus{Status: chain.StatusFinalized, Outcome: summary}
}
