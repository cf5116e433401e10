// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chaintest

import (
	"errors"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/module"
)

const instanceCacheSize = 1024

var (
	// Separate prefixes keep each record type in its own key space.
	singletonPrefix = []byte("singleton")
	modulePrefix    = []byte("module")
	instancePrefix  = []byte("instance")
	txPrefix        = []byte("tx")

	nextIndexKey = []byte("nextIndex")
	heightKey    = []byte("height")

	errWrongVersion = errors.New("wrong version")
)

// txRecord is the executed form of a transaction.
type txRecord struct {
	Sender      string `serialize:"true"`
	Kind        string `serialize:"true"`
	BlockID     ids.ID `serialize:"true"`
	BlockHeight uint64 `serialize:"true"`
	ModuleRef   ids.ID `serialize:"true"`
	Contract    uint64 `serialize:"true"`
	// EntryName is the init name for initializations and the receive name
	// for updates.
	EntryName string `serialize:"true"`
	Amount    uint64 `serialize:"true"`

	Rejected   bool   `serialize:"true"`
	RejectTag  string `serialize:"true"`
	RejectCode int32  `serialize:"true"`
}

func (r *txRecord) summary() *chain.BlockItemSummary {
	summary := &chain.BlockItemSummary{
		BlockHash:       r.BlockID.Hex(),
		Type:            chain.AccountTransaction,
		TransactionType: chain.TransactionKind(r.Kind),
		Sender:          r.Sender,
	}
	if r.Rejected {
		summary.TransactionType = chain.Failed
		summary.RejectReason = &chain.RejectReason{
			Tag:          r.RejectTag,
			RejectReason: r.RejectCode,
		}
		return summary
	}
	switch summary.TransactionType {
	case chain.DeployModule:
		ref := module.Ref(r.ModuleRef)
		summary.ModuleDeployed = &ref
	case chain.InitContract:
		summary.ContractInitialized = &chain.ContractInitialized{
			Address:  chain.NewContractAddress(r.Contract),
			InitName: r.EntryName,
			Ref:      module.Ref(r.ModuleRef),
			Amount:   r.Amount,
		}
	case chain.Update:
		addr := chain.NewContractAddress(r.Contract)
		summary.ContractUpdated = &addr
	}
	return summary
}

// instanceRecord is a contract instance. Contracts on the development node
// keep the last parameter they received as their state.
type instanceRecord struct {
	Name         string   `serialize:"true"`
	Methods      []string `serialize:"true"`
	SourceModule ids.ID   `serialize:"true"`
	Owner        string   `serialize:"true"`
	Amount       uint64   `serialize:"true"`
	State        []byte   `serialize:"true"`
}

func (r *instanceRecord) info() *chain.InstanceInfo {
	return &chain.InstanceInfo{
		Name:         r.Name,
		Methods:      append([]string{}, r.Methods...),
		SourceModule: module.Ref(r.SourceModule),
		Owner:        r.Owner,
		Amount:       r.Amount,
	}
}

type state struct {
	baseDB      *versiondb.Database
	singletonDB database.Database
	moduleDB    database.Database
	instanceDB  database.Database
	txDB        database.Database

	instances *cache.LRU[uint64, *instanceRecord]
}

func newState(db database.Database) *state {
	baseDB := versiondb.New(db)
	return &state{
		baseDB:      baseDB,
		singletonDB: prefixdb.New(singletonPrefix, baseDB),
		moduleDB:    prefixdb.New(modulePrefix, baseDB),
		instanceDB:  prefixdb.New(instancePrefix, baseDB),
		txDB:        prefixdb.New(txPrefix, baseDB),
		instances:   &cache.LRU[uint64, *instanceRecord]{Size: instanceCacheSize},
	}
}

func (s *state) HasModule(ref module.Ref) (bool, error) {
	return s.moduleDB.Has(ref[:])
}

// GetModule returns nil when no module is stored under [ref].
func (s *state) GetModule(ref module.Ref) ([]byte, error) {
	source, err := s.moduleDB.Get(ref[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return source, err
}

func (s *state) PutModule(ref module.Ref, source []byte) error {
	return s.moduleDB.Put(ref[:], source)
}

func (s *state) GetInstance(index uint64) (*instanceRecord, error) {
	if rec, ok := s.instances.Get(index); ok {
		return rec, nil
	}
	bytes, err := s.instanceDB.Get(database.PackUInt64(index))
	if err != nil {
		return nil, err
	}
	rec := &instanceRecord{}
	if err := unmarshal(bytes, rec); err != nil {
		return nil, err
	}
	s.instances.Put(index, rec)
	return rec, nil
}

func (s *state) PutInstance(index uint64, rec *instanceRecord) error {
	bytes, err := Codec.Marshal(codecVersion, rec)
	if err != nil {
		return err
	}
	s.instances.Put(index, rec)
	return s.instanceDB.Put(database.PackUInt64(index), bytes)
}

// NextIndex reserves the next contract index.
func (s *state) NextIndex() (uint64, error) {
	index, err := database.GetUInt64(s.singletonDB, nextIndexKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
		index = 0
	case err != nil:
		return 0, err
	}
	return index, database.PutUInt64(s.singletonDB, nextIndexKey, index+1)
}

func (s *state) GetTx(txID ids.ID) (*txRecord, error) {
	bytes, err := s.txDB.Get(txID[:])
	if err != nil {
		return nil, err
	}
	rec := &txRecord{}
	return rec, unmarshal(bytes, rec)
}

func (s *state) PutTx(txID ids.ID, rec *txRecord) error {
	bytes, err := Codec.Marshal(codecVersion, rec)
	if err != nil {
		return err
	}
	return s.txDB.Put(txID[:], bytes)
}

func (s *state) Height() (uint64, error) {
	height, err := database.GetUInt64(s.singletonDB, heightKey)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return height, err
}

func (s *state) SetHeight(height uint64) error {
	return database.PutUInt64(s.singletonDB, heightKey, height)
}

func (s *state) Commit() error {
	return s.baseDB.Commit()
}

// Abort drops everything written since the last commit.
func (s *state) Abort() {
	s.baseDB.Abort()
	s.instances.Flush()
}

func (s *state) Close() error {
	return s.baseDB.Close()
}

func unmarshal(bytes []byte, v interface{}) error {
	version, err := Codec.Unmarshal(bytes, v)
	if err != nil {
		return err
	}
	if version != codecVersion {
		return errWrongVersion
	}
	return nil
}
