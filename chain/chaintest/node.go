// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chaintest runs an in-memory development node. It serves the
// chain, wallet and schema JSON-RPC APIs the toolkit consumes, and executes
// transactions in blocks built on demand.
package chaintest

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/schema"
	"github.com/ava-labs/contracttools/wallet"
)

// DefaultFinalizeAfter is the number of status queries after which a
// transaction is reported finalized.
const DefaultFinalizeAfter = 2

// Reject tags raised by the node itself.
const (
	TagModuleHashAlreadyExists = "ModuleHashAlreadyExists"
	TagModuleNotWF             = "ModuleNotWF"
	TagInvalidModuleReference  = "InvalidModuleReference"
	TagInvalidInitMethod       = "InvalidInitMethod"
	TagInvalidContractAddress  = "InvalidContractAddress"
	TagInvalidReceiveMethod    = "InvalidReceiveMethod"
)

// invokeEnergy is charged for every invocation.
const invokeEnergy = 500

var (
	errUnknownTx       = errors.New("transaction not found")
	errUnknownInstance = errors.New("contract instance not found")
	errInvalidSender   = errors.New("invalid sender")
	errInvalidParam    = errors.New("cannot serialize parameter")
	errClosed          = errors.New("node closed")
)

type Config struct {
	// FinalizeAfter defaults to [DefaultFinalizeAfter].
	FinalizeAfter int
	// Inspector defaults to a fresh module.Introspector.
	Inspector module.Inspector
	// Codec serializes typed parameters sent to the wallet. It defaults to
	// [JSONCodec].
	Codec schema.Codec
}

type pendingTx struct {
	sender  string
	payload wallet.Payload
}

type rejection struct {
	code  int32
	value []byte
}

// Node is a single-validator chain living in memory.
type Node struct {
	finalizeAfter int
	inspector     module.Inspector
	codec         schema.Codec
	log           log.Logger

	lock    sync.Mutex
	state   *state
	mempool *mempool
	pending map[ids.ID]*pendingTx
	polls   map[ids.ID]int
	nonce   uint64
	reject  *rejection
	closed  bool
}

func NewNode(cfg Config) *Node {
	if cfg.FinalizeAfter <= 0 {
		cfg.FinalizeAfter = DefaultFinalizeAfter
	}
	if cfg.Inspector == nil {
		cfg.Inspector = module.NewIntrospector()
	}
	if cfg.Codec == nil {
		cfg.Codec = JSONCodec{}
	}
	return &Node{
		finalizeAfter: cfg.FinalizeAfter,
		inspector:     cfg.Inspector,
		codec:         cfg.Codec,
		log:           log.New("module", "devnode"),
		state:         newState(memdb.New()),
		mempool:       newMempool(),
		pending:       make(map[ids.ID]*pendingTx),
		polls:         make(map[ids.ID]int),
	}
}

// RejectNext makes the next contract execution reject with [code]. [value]
// is returned as the error payload of an invocation.
func (n *Node) RejectNext(code int32, value []byte) {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.reject = &rejection{code: code, value: value}
}

// Submit queues a transaction signed by [sender]. When [params] is set the
// parameter is serialized against its schema first.
func (n *Node) Submit(ctx context.Context, sender string, payload wallet.Payload, params *wallet.TypedParameters) (chain.TransactionRef, error) {
	if _, err := chain.ParseAccountAddress(sender); err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidSender, err)
	}
	if params != nil {
		if err := n.serialize(ctx, payload, params); err != nil {
			return "", err
		}
	}
	args, err := wallet.EncodeArgs(sender, payload, nil)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", err
	}

	n.lock.Lock()
	defer n.lock.Unlock()

	if n.closed {
		return "", errClosed
	}
	n.nonce++
	txID := ids.ID(hashing.ComputeHash256Array(binary.BigEndian.AppendUint64(b, n.nonce)))
	if err := n.mempool.Add(txID); err != nil {
		return "", err
	}
	n.pending[txID] = &pendingTx{sender: sender, payload: payload}

	ref := chain.TransactionRef(txID.Hex())
	n.log.Debug("transaction received", "txRef", ref, "type", payload.Kind(), "sender", sender)
	return ref, nil
}

func (n *Node) serialize(ctx context.Context, payload wallet.Payload, params *wallet.TypedParameters) error {
	var err error
	switch p := payload.(type) {
	case *wallet.InitContractPayload:
		p.Param, err = n.codec.SerializeInitParameter(ctx, params.Schema, p.InitName, params.Parameters)
	case *wallet.UpdateContractPayload:
		contract, entrypoint, _ := strings.Cut(p.ReceiveName, ".")
		p.Param, err = n.codec.SerializeUpdateParameter(ctx, params.Schema, contract, entrypoint, params.Parameters)
	default:
		return fmt.Errorf("%w: %s takes no parameter", errInvalidParam, payload.Kind())
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidParam, err)
	}
	return nil
}

// Status reports a transaction as committed once its block is built and as
// finalized from the FinalizeAfter-th query on. Querying a pending
// transaction builds a block.
func (n *Node) Status(ctx context.Context, ref chain.TransactionRef) (*chain.BlockItemStatus, error) {
	txID, err := parseTxRef(ref)
	if err != nil {
		return nil, err
	}

	n.lock.Lock()
	defer n.lock.Unlock()

	if _, ok := n.pending[txID]; ok {
		if _, err := n.buildBlock(ctx); err != nil {
			return nil, err
		}
	}
	rec, err := n.state.GetTx(txID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", errUnknownTx, ref)
	}
	if err != nil {
		return nil, err
	}

	n.polls[txID]++
	if n.polls[txID] < n.finalizeAfter {
		return &chain.BlockItemStatus{Status: chain.StatusCommitted}, nil
	}
	return &chain.BlockItemStatus{
		Status:  chain.StatusFinalized,
		Outcome: rec.summary(),
	}, nil
}

// BuildBlock executes every pending transaction in a new block and returns
// how many it included.
func (n *Node) BuildBlock(ctx context.Context) (int, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.buildBlock(ctx)
}

func (n *Node) buildBlock(ctx context.Context) (int, error) {
	var txIDs []ids.ID
	for {
		txID, err := n.mempool.Next()
		if errors.Is(err, errEmptyMempool) {
			break
		}
		txIDs = append(txIDs, txID)
	}
	if len(txIDs) == 0 {
		return 0, nil
	}

	height, err := n.state.Height()
	if err != nil {
		return 0, err
	}
	height++
	blkBytes := database.PackUInt64(height)
	for _, txID := range txIDs {
		blkBytes = append(blkBytes, txID[:]...)
	}
	blkID := ids.ID(hashing.ComputeHash256Array(blkBytes))

	for _, txID := range txIDs {
		tx := n.pending[txID]
		delete(n.pending, txID)

		rec, err := n.execute(ctx, tx)
		if err != nil {
			n.state.Abort()
			return 0, err
		}
		rec.BlockID = blkID
		rec.BlockHeight = height
		if err := n.state.PutTx(txID, rec); err != nil {
			n.state.Abort()
			return 0, err
		}
	}
	if err := n.state.SetHeight(height); err != nil {
		n.state.Abort()
		return 0, err
	}
	if err := n.state.Commit(); err != nil {
		return 0, err
	}
	n.log.Info("built block", "height", height, "blkID", blkID.Hex(), "txs", len(txIDs))
	return len(txIDs), nil
}

func (n *Node) execute(ctx context.Context, tx *pendingTx) (*txRecord, error) {
	rec := &txRecord{
		Sender: tx.sender,
		Kind:   string(tx.payload.Kind()),
	}
	switch p := tx.payload.(type) {
	case *wallet.DeployModulePayload:
		return rec, n.deploy(ctx, rec, p)
	case *wallet.InitContractPayload:
		return rec, n.initialize(ctx, rec, p)
	case *wallet.UpdateContractPayload:
		return rec, n.update(rec, p)
	default:
		return nil, fmt.Errorf("unexpected payload %T", tx.payload)
	}
}

func (n *Node) deploy(ctx context.Context, rec *txRecord, p *wallet.DeployModulePayload) error {
	ref := module.RefOf(p.Source)
	rec.ModuleRef = ids.ID(ref)

	exists, err := n.state.HasModule(ref)
	if err != nil {
		return err
	}
	if exists {
		rec.reject(TagModuleHashAlreadyExists, 0)
		return nil
	}
	if _, err := n.inspector.Inspect(ctx, p.Source); err != nil {
		n.log.Debug("rejecting malformed module", "moduleRef", ref, "err", err)
		rec.reject(TagModuleNotWF, 0)
		return nil
	}
	return n.state.PutModule(ref, p.Source)
}

func (n *Node) initialize(ctx context.Context, rec *txRecord, p *wallet.InitContractPayload) error {
	rec.ModuleRef = ids.ID(p.ModuleRef)
	rec.EntryName = module.InitPrefix + p.InitName
	rec.Amount = p.Amount

	source, err := n.state.GetModule(p.ModuleRef)
	if err != nil {
		return err
	}
	if source == nil {
		rec.reject(TagInvalidModuleReference, 0)
		return nil
	}
	info, err := n.inspector.Inspect(ctx, source)
	if err != nil {
		return err
	}
	if !contains(info.ContractNames, p.InitName) {
		rec.reject(TagInvalidInitMethod, 0)
		return nil
	}
	if r := n.takeRejection(); r != nil {
		rec.reject(chain.RejectedInit, r.code)
		return nil
	}

	index, err := n.state.NextIndex()
	if err != nil {
		return err
	}
	methods := []string{}
	for _, name := range info.ReceiveNames {
		if strings.HasPrefix(name, p.InitName+".") {
			methods = append(methods, name)
		}
	}
	rec.Contract = index
	return n.state.PutInstance(index, &instanceRecord{
		Name:         rec.EntryName,
		Methods:      methods,
		SourceModule: rec.ModuleRef,
		Owner:        rec.Sender,
		Amount:       p.Amount,
		State:        p.Param,
	})
}

func (n *Node) update(rec *txRecord, p *wallet.UpdateContractPayload) error {
	rec.Contract = p.Address.Index
	rec.EntryName = p.ReceiveName
	rec.Amount = p.Amount

	inst, tag, err := n.lookup(p.Address, p.ReceiveName)
	if err != nil {
		return err
	}
	if tag != "" {
		rec.reject(tag, 0)
		return nil
	}
	if r := n.takeRejection(); r != nil {
		rec.reject(chain.RejectedReceive, r.code)
		return nil
	}

	next := *inst
	next.Amount += p.Amount
	if len(p.Param) > 0 {
		next.State = p.Param
	}
	return n.state.PutInstance(p.Address.Index, &next)
}

// lookup returns the instance at [addr], or the tag to reject with when it
// does not exist or has no [method].
func (n *Node) lookup(addr chain.ContractAddress, method string) (*instanceRecord, string, error) {
	if addr.Subindex != chain.ContractSubindex {
		return nil, TagInvalidContractAddress, nil
	}
	inst, err := n.state.GetInstance(addr.Index)
	if errors.Is(err, database.ErrNotFound) {
		return nil, TagInvalidContractAddress, nil
	}
	if err != nil {
		return nil, "", err
	}
	if !contains(inst.Methods, method) {
		return nil, TagInvalidReceiveMethod, nil
	}
	return inst, "", nil
}

func (n *Node) takeRejection() *rejection {
	r := n.reject
	n.reject = nil
	return r
}

func (r *txRecord) reject(tag string, code int32) {
	r.Rejected = true
	r.RejectTag = tag
	r.RejectCode = code
}

// ModuleSource returns nil if no module is deployed under [ref].
func (n *Node) ModuleSource(ref module.Ref) ([]byte, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.state.GetModule(ref)
}

// Invoke runs an entrypoint against the committed state. Every entrypoint
// returns the instance state.
func (n *Node) Invoke(req *chain.InvokeRequest) (*chain.InvokeResult, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	inst, tag, err := n.lookup(req.Contract, req.Method)
	if err != nil {
		return nil, err
	}
	if tag != "" {
		return &chain.InvokeResult{
			Tag:        chain.InvokeFailure,
			UsedEnergy: invokeEnergy,
			Reason:     &chain.RejectReason{Tag: tag, Address: &req.Contract, ReceiveName: req.Method},
		}, nil
	}
	if r := n.takeRejection(); r != nil {
		return &chain.InvokeResult{
			Tag:         chain.InvokeFailure,
			ReturnValue: r.value,
			UsedEnergy:  invokeEnergy,
			Reason: &chain.RejectReason{
				Tag:          chain.RejectedReceive,
				RejectReason: r.code,
				Address:      &req.Contract,
				ReceiveName:  req.Method,
			},
		}, nil
	}
	return &chain.InvokeResult{
		Tag:         chain.InvokeSuccess,
		ReturnValue: append([]byte(nil), inst.State...),
		UsedEnergy:  invokeEnergy + uint64(len(inst.State)),
	}, nil
}

func (n *Node) Instance(addr chain.ContractAddress) (*chain.InstanceInfo, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	inst, err := n.state.GetInstance(addr.Index)
	if errors.Is(err, database.ErrNotFound) || addr.Subindex != chain.ContractSubindex {
		return nil, fmt.Errorf("%w: %s", errUnknownInstance, addr)
	}
	if err != nil {
		return nil, err
	}
	return inst.info(), nil
}

// Close releases the database. Pending transactions are dropped.
func (n *Node) Close() error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	return n.state.Close()
}

func parseTxRef(ref chain.TransactionRef) (ids.ID, error) {
	b, err := hex.DecodeString(string(ref))
	if err != nil {
		return ids.Empty, fmt.Errorf("%w: %s", errUnknownTx, ref)
	}
	txID, err := ids.ToID(b)
	if err != nil {
		return ids.Empty, fmt.Errorf("%w: %s", errUnknownTx, ref)
	}
	return txID, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
