// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chaintest

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
)

const mempoolSize = 256

var errEmptyMempool = errors.New("empty mempool")

// mempool queues transaction IDs in arrival order until the next block.
type mempool struct {
	txIDs chan ids.ID
}

func newMempool() *mempool {
	return &mempool{txIDs: make(chan ids.ID, mempoolSize)}
}

func (m *mempool) Add(txID ids.ID) error {
	select {
	case m.txIDs <- txID:
		return nil
	default:
		return fmt.Errorf("failed to add transaction %s to mempool due to full at size (%d)", txID.Hex(), mempoolSize)
	}
}

func (m *mempool) Next() (ids.ID, error) {
	select {
	case txID := <-m.txIDs:
		return txID, nil
	default:
		return ids.Empty, errEmptyMempool
	}
}

func (m *mempool) Len() int {
	return len(m.txIDs)
}
