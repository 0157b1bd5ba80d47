package state

import (
	"context"

	"github.com/songledger/songledger/foundation/blockchain/difficulty"
	"github.com/songledger/songledger/foundation/blockchain/mining"
)

// poolThreshold is the pool size the mining loop waits for before it
// will draw a candidate transaction, per §4.3.
const poolThreshold = 3

// MineStep runs at most one mining attempt: it waits for conflict_solve
// to be true, checks the pool threshold, and if satisfied builds and
// mines exactly one candidate block from the oldest pending
// transaction. The caller (app/services/peer's mining worker) is
// expected to call this in a loop with a short sleep between attempts
// that return mined == false, matching the original's busy-wait
// cadence without actually spinning on the CPU.
//
// Broadcasting a successfully mined block happens inside MineStep, one
// send per peer, after the state lock is released, so a slow peer delays
// this call but not other users of the state.
func (s *State) MineStep(ctx context.Context) (mined bool, err error) {
	if !s.Connected() {
		return false, nil
	}

	s.mu.Lock()
	s.waitForConflictSolve()
	if !s.connected.Load() {
		s.mu.Unlock()
		return false, nil
	}
	if s.pool.Len() < poolThreshold {
		s.mu.Unlock()
		return false, nil
	}

	tx, ok := s.pool.Oldest()
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	data, err := tx.Serialize()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}

	index := uint64(s.chain.Len())
	previousHash := s.chain.Tail().ComputeHash()
	level := s.currentLevel
	signature := s.signature
	s.mu.Unlock()

	block := mining.Candidate(index, data, previousHash, signature, level)
	if _, err := mining.Mine(ctx, &block, s.miningEvent); err != nil {
		return false, err
	}

	if !s.Connected() {
		s.logf("mine: peer disconnected mid-mine, discarding block index[%d]", block.Index)
		return false, nil
	}

	s.mu.Lock()
	added := s.chain.AddBlock(block, block.Hash, "")
	if !added {
		s.mu.Unlock()
		s.logf("mine: self-mined block rejected by local chain, starting over: index[%d]", block.Index)
		return false, nil
	}
	s.currentLevel = difficulty.Next(block.MineTime, s.currentLevel)
	s.removeEmbeddedTransaction(block)
	peers := s.peers.Addrs()
	s.mu.Unlock()

	for _, addr := range peers {
		if err := s.broadcaster.SendBlock(addr, block); err != nil {
			s.logf("mine: broadcast block: peer[%s]: %v", addr, err)
		}
	}
	s.publishBlock(block)

	return true, nil
}

func (s *State) miningEvent(msg string, kv ...any) {
	s.logf(msg, kv...)
}
