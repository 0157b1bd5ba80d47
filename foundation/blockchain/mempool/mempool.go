// Package mempool holds pending transactions that haven't yet been
// embedded in a block, in strict FIFO order.
package mempool

import "github.com/songledger/songledger/foundation/blockchain/database"

// Mempool is an insertion-ordered set of pending transactions. The
// zero value is not usable; use New.
//
// Mempool has no lock of its own; foundation/blockchain/state serializes
// access to it under the same mutex guarding the chain and peer set.
type Mempool struct {
	pending []database.Transaction
}

// New constructs an empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Append adds tx to the tail of the pool.
func (m *Mempool) Append(tx database.Transaction) {
	m.pending = append(m.pending, tx)
}

// Len reports how many transactions are pending.
func (m *Mempool) Len() int {
	return len(m.pending)
}

// Oldest returns the oldest pending transaction, the next mining
// candidate, and whether the pool was non-empty.
func (m *Mempool) Oldest() (database.Transaction, bool) {
	if len(m.pending) == 0 {
		return database.Transaction{}, false
	}
	return m.pending[0], true
}

// RemoveOldest drops the oldest pending transaction. It's a no-op on an
// empty pool.
func (m *Mempool) RemoveOldest() {
	if len(m.pending) == 0 {
		return
	}
	m.pending = m.pending[1:]
}

// Snapshot returns a copy of the pending transactions in FIFO order, for
// read-only callers such as State.PoolSnapshot.
func (m *Mempool) Snapshot() []database.Transaction {
	out := make([]database.Transaction, len(m.pending))
	copy(out, m.pending)
	return out
}
