// Package mining constructs candidate blocks and runs the proof-of-work
// search for them. The pool-draining, threshold-gating and broadcast
// hookup around this live in foundation/blockchain/state, which owns the
// shared chain/pool/peer-set locks this package has no business
// touching.
package mining

import (
	"context"

	"github.com/songledger/songledger/foundation/blockchain/database"
	"github.com/songledger/songledger/foundation/blockchain/difficulty"
)

// EventFunc is a structured-logging sink, mirroring the teacher's
// evHandler convention: a printf-style format string plus its
// arguments, safe to pass as nil.
type EventFunc func(msg string, kv ...any)

// Candidate builds a new, unmined block carrying txData as its payload,
// linked to previousHash at the given chain index and difficulty.
func Candidate(index uint64, txData, previousHash, signature string, level difficulty.Level) database.Block {
	return database.NewCandidateBlock(index, txData, previousHash, signature, level)
}

// Mine runs the proof-of-work search on block until it solves its
// difficulty predicate or ctx is cancelled. It mutates block in place
// (Nonce, Hash, MineTime) and also returns it for convenience.
func Mine(ctx context.Context, block *database.Block, ev EventFunc) (database.Block, error) {
	emit(ev, "mining: started: index[%d] difficulty[%s]", block.Index, block.Difficulty)

	if err := block.Mine(ctx); err != nil {
		emit(ev, "mining: cancelled: index[%d]", block.Index)
		return database.Block{}, err
	}

	emit(ev, "mining: solved: index[%d] hash[%s] nonce[%d] mine_time[%.2f]",
		block.Index, block.Hash, block.Nonce, block.MineTime)

	return *block, nil
}

func emit(ev EventFunc, msg string, kv ...any) {
	if ev != nil {
		ev(msg, kv...)
	}
}
