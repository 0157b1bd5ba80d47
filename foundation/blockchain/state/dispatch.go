package state

import (
	"sort"
	"strings"

	"github.com/songledger/songledger/foundation/blockchain/database"
	"github.com/songledger/songledger/foundation/blockchain/difficulty"
	"github.com/songledger/songledger/foundation/blockchain/wire"
)

// Dispatch routes one inbound peer-mesh payload (already stripped of
// its length prefix) by its message kind. senderAddr is the remote
// address the message arrived from, used for both the unknown-sender
// check and the received block's sender-signature check.
func (s *State) Dispatch(senderAddr, payload string) {
	kind, body := wire.Parse(payload)
	switch kind {
	case wire.KindPeerList:
		if s.HandlePeerList(body) {
			s.RequestChainFromAll()
		}
	case wire.KindNewBlock:
		s.HandleNewBlock(senderAddr, body)
	case wire.KindTransaction:
		s.HandleTransaction(senderAddr, body)
	case wire.KindRequestBC:
		s.HandleRequestBC(senderAddr)
	case wire.KindReceiveBC:
		s.HandleReceiveBC(body)
	case wire.KindReqChange:
		s.HandleReqChange(senderAddr, body)
	default:
		s.warnf("dispatch: unrecognized payload: %q", payload)
	}
}

// HandlePeerList reconciles the local peer set against a tracker's
// PEER_LIST: broadcast using the size-delta heuristic: the received
// list's size relative to the local one tells us whether a peer left,
// joined, or the message is the self-only bootstrap echo. This is
// spec.md's own brittleness, carried over deliberately rather than the
// set-difference improvement the design notes flag as a "should
// consider" — see DESIGN.md.
// HandlePeerList reports true when this call performed the bootstrap
// adoption of the peer's very first PEER_LIST — the signal the caller
// uses to kick off REQUEST_BC to every newly-known peer.
func (s *State) HandlePeerList(body string) bool {
	received := parsePeerList(body)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.localBCBuilt && s.peers.Len() == 0 && len(received) > 1 {
		// Bootstrap: the first PEER_LIST carrying more than just self.
		// Record every address but self; the caller drives REQUEST_BC.
		s.adoptInitialPeerList(received)
		return true
	}

	local := s.peers.Addrs()

	switch {
	case len(received) == 1 && len(local) == 0:
		// self-only echo with nothing recorded yet; no-op.
	case len(received) == len(local):
		// A peer left: find the address present locally but absent from
		// the new list and remove it.
		gone := setDifference(local, received)
		for _, addr := range gone {
			s.peers.Remove(addr)
		}
	case len(received) == len(local)+2:
		// A peer joined: by convention the new address is last.
		if len(received) > 0 {
			newAddr := received[len(received)-1]
			if newAddr != s.selfAddr {
				s.peers.Add(newAddr)
			}
		}
	default:
		s.warnf("peer-list: anomalous size delta: local[%d] received[%d]", len(local), len(received))
	}
	return false
}

// adoptInitialPeerList records every address in received except self,
// called only while holding mu.
func (s *State) adoptInitialPeerList(received []string) {
	var keep []string
	for _, addr := range received {
		if addr != s.selfAddr {
			keep = append(keep, addr)
		}
	}
	s.peers.Reset(keep)
}

// HandleNewBlock parses and attempts to apply a block broadcast from a
// peer. An unknown sender is logged and ignored. A rejected block
// triggers a REQ_CHANGE: reply carrying the local non-genesis chain so
// the sender can reconcile.
func (s *State) HandleNewBlock(senderAddr, body string) {
	s.mu.Lock()
	if !s.peers.Contains(senderAddr) {
		s.mu.Unlock()
		s.warnf("new-block: unknown sender: addr[%s]", senderAddr)
		return
	}
	s.mu.Unlock()

	block, declaredHash, err := database.ParseBlock(body)
	if err != nil {
		s.warnf("new-block: parse: %v", err)
		return
	}

	if s.seen.SeenBlock(declaredHash) {
		return
	}

	s.mu.Lock()
	ok := s.chain.AddBlock(block, declaredHash, senderAddr)
	if ok {
		s.currentLevel = difficulty.Next(block.MineTime, s.currentLevel)
		s.removeEmbeddedTransaction(block)
	}
	localChain := s.nonGenesisLocked()
	s.mu.Unlock()

	if ok {
		s.logf("new-block: accepted: index[%d] hash[%s]", block.Index, declaredHash)
		s.publishBlock(block)
		return
	}

	s.logf("new-block: rejected: index[%d] hash[%s], requesting sender to adopt ours", block.Index, declaredHash)
	if err := s.broadcaster.SendChainDump(senderAddr, wire.KindReqChange, localChain); err != nil {
		s.logf("new-block: send REQ_CHANGE: peer[%s]: %v", senderAddr, err)
	}
}

// removeEmbeddedTransaction drops the pool entry matching the
// transaction a newly-accepted block embedded, if this peer still has
// it pending. Must be called while holding mu.
func (s *State) removeEmbeddedTransaction(block database.Block) {
	tx, err := database.ParseTransaction(block.Data)
	if err != nil {
		return
	}
	oldest, ok := s.pool.Oldest()
	if ok && oldest.Signature == tx.Signature && oldest.Timestamp == tx.Timestamp {
		s.pool.RemoveOldest()
	}
}

// HandleTransaction appends a peer-broadcast transaction to the local
// pool, unless the sender is unknown.
func (s *State) HandleTransaction(senderAddr, body string) {
	s.mu.Lock()
	if !s.peers.Contains(senderAddr) {
		s.mu.Unlock()
		s.warnf("transaction: unknown sender: addr[%s]", senderAddr)
		return
	}
	s.mu.Unlock()

	tx, err := database.ParseTransaction(body)
	if err != nil {
		s.warnf("transaction: parse: %v", err)
		return
	}

	key := tx.Signature + tx.SongName + tx.Timestamp
	if s.seen.SeenTransaction(key) {
		return
	}

	s.mu.Lock()
	s.pool.Append(tx)
	s.mu.Unlock()
}

// HandleRequestBC answers a REQUEST_BC with a RECEIVE_BC: chain dump of
// every non-genesis block, if any exist.
func (s *State) HandleRequestBC(senderAddr string) {
	s.mu.Lock()
	blocks := s.nonGenesisLocked()
	s.mu.Unlock()

	if len(blocks) == 0 {
		return
	}
	if err := s.broadcaster.SendChainDump(senderAddr, wire.KindReceiveBC, blocks); err != nil {
		s.logf("request-bc: send RECEIVE_BC: peer[%s]: %v", senderAddr, err)
	}
}

// HandleReceiveBC implements the join-time chain-vote multiset: while
// local_bc_built is false, every RECEIVE_BC: payload is tallied by its
// raw string; once one payload's count reaches a ceil(|peers|/2)
// majority, its blocks are adopted onto the genesis and the vote is
// cleared. Payloads arriving after local_bc_built is true are ignored —
// reconciliation from then on happens exclusively through REQ_CHANGE:.
func (s *State) HandleReceiveBC(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.localBCBuilt {
		return
	}

	s.chainVotes[body]++
	need := (s.peers.Len() + 1) / 2 // ceil(|peers|/2)
	if need == 0 {
		need = 1
	}
	if s.chainVotes[body] < need {
		return
	}

	blocks, ok := parseChainDump(body)
	if !ok || !database.IsValidBlocks(blocks) {
		s.warnf("receive-bc: majority payload failed to parse or validate")
		return
	}

	s.chain.ReplaceNonGenesis(blocks)
	s.localBCBuilt = true
	s.chainVotes = make(map[string]int)
	s.logf("receive-bc: local chain adopted: len[%d]", len(blocks)+1)
}

// HandleReqChange applies the conflict-resolution rule (§4.5) to a
// candidate chain proposed by a peer, pausing mining and synthetic
// transaction generation (conflict_solve = false) for its duration. An
// unknown sender is logged and ignored, matching HandleNewBlock and
// HandleTransaction's unknown-sender checks — the Python ground truth's
// handle_req_change performs this same check before anything else.
func (s *State) HandleReqChange(senderAddr, body string) {
	s.mu.Lock()
	if !s.peers.Contains(senderAddr) {
		s.mu.Unlock()
		s.warnf("req-change: unknown sender: addr[%s]", senderAddr)
		return
	}
	s.conflictSolve = false
	s.mu.Unlock()

	blocks, ok := parseChainDump(body)

	s.mu.Lock()
	defer func() {
		s.conflictSolve = true
		s.conflictCond.Broadcast()
		s.mu.Unlock()
	}()

	if !ok || !database.IsValidBlocks(blocks) {
		s.warnf("req-change: candidate chain invalid or unparseable, keeping local")
		return
	}

	local := s.nonGenesisLocked()
	resolveChain(s.chain, blocks, local)
}

// nonGenesisLocked returns a copy of the non-genesis blocks. Must be
// called while holding mu.
func (s *State) nonGenesisLocked() []database.Block {
	ng := s.chain.NonGenesis()
	out := make([]database.Block, len(ng))
	copy(out, ng)
	return out
}

// parsePeerList splits a PEER_LIST: body into individual addresses. The
// body arrives as a Python-repr-styled list, e.g. "['10.0.0.1',
// '10.0.0.2']"; this strips the bracket/quote punctuation the original
// tracker emits rather than requiring a JSON re-encode on the wire.
func parsePeerList(body string) []string {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "[")
	body = strings.TrimSuffix(body, "]")
	if body == "" {
		return nil
	}
	parts := strings.Split(body, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, "'\"")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseChainDump decodes a RECEIVE_BC:/REQ_CHANGE: body into blocks, in
// order, reporting false if any segment fails to parse.
func parseChainDump(body string) ([]database.Block, bool) {
	parts := wire.SplitChainDump(body)
	blocks := make([]database.Block, 0, len(parts))
	for _, p := range parts {
		b, _, err := database.ParseBlock(p)
		if err != nil {
			return nil, false
		}
		blocks = append(blocks, b)
	}
	return blocks, true
}

// setDifference returns the elements of a not present in b.
func setDifference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, x := range b {
		inB[x] = true
	}
	var out []string
	for _, x := range a {
		if !inB[x] {
			out = append(out, x)
		}
	}
	sort.Strings(out)
	return out
}
