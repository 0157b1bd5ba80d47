package state_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/songledger/songledger/foundation/blockchain/database"
	"github.com/songledger/songledger/foundation/blockchain/state"
	"github.com/songledger/songledger/foundation/blockchain/wire"
)

type fakeBroadcaster struct {
	mu        sync.Mutex
	blocks    []database.Block
	txs       []database.Transaction
	dumps     []wire.Kind
	requested []string
}

func (f *fakeBroadcaster) SendBlock(addr string, block database.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = append(f.blocks, block)
	return nil
}

func (f *fakeBroadcaster) SendTransaction(addr string, tx database.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, tx)
	return nil
}

func (f *fakeBroadcaster) SendChainDump(addr string, kind wire.Kind, blocks []database.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dumps = append(f.dumps, kind)
	return nil
}

func (f *fakeBroadcaster) RequestChain(addr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, addr)
	return nil
}

func newTestState(broadcaster *fakeBroadcaster) *state.State {
	return state.New(state.Config{
		SelfAddr:    "10.0.0.1",
		Broadcaster: broadcaster,
	})
}

func TestSubmitTransactionAppendsAndBroadcasts(t *testing.T) {
	b := &fakeBroadcaster{}
	s := newTestState(b)
	s.HandlePeerList(`['10.0.0.1', '10.0.0.2']`)

	tx := database.NewRegister("alice", "song-a", "hash-a", "sig")
	if err := s.SubmitTransaction(tx); err != nil {
		t.Fatal(err)
	}

	if s.PoolLen() != 1 {
		t.Fatalf("PoolLen() = %d, want 1", s.PoolLen())
	}
	if len(b.txs) != 1 {
		t.Fatalf("broadcast tx count = %d, want 1", len(b.txs))
	}
}

func TestHandlePeerListBootstrapTriggersRequestBC(t *testing.T) {
	b := &fakeBroadcaster{}
	s := newTestState(b)

	s.Dispatch("127.0.0.1", wire.Encode(wire.KindPeerList, `['10.0.0.1', '10.0.0.2', '10.0.0.3']`))

	peers := s.Peers()
	if len(peers) != 2 {
		t.Fatalf("Peers() = %v, want 2 entries (self excluded)", peers)
	}
	if len(b.requested) != 2 {
		t.Fatalf("REQUEST_BC sent to %d peers, want 2", len(b.requested))
	}
}

func TestHandlePeerListSizeDeltaJoinAndLeave(t *testing.T) {
	b := &fakeBroadcaster{}
	s := newTestState(b)
	s.HandlePeerList(`['10.0.0.1', '10.0.0.2']`)
	if len(s.Peers()) != 1 {
		t.Fatalf("after bootstrap, Peers() = %v, want 1", s.Peers())
	}

	// A third peer joins; by convention it's last in the list.
	s.HandlePeerList(`['10.0.0.1', '10.0.0.2', '10.0.0.3']`)
	peers := s.Peers()
	if len(peers) != 2 {
		t.Fatalf("after join, Peers() = %v, want 2", peers)
	}

	// 10.0.0.2 leaves.
	s.HandlePeerList(`['10.0.0.1', '10.0.0.3']`)
	peers = s.Peers()
	if len(peers) != 1 || peers[0] != "10.0.0.3" {
		t.Fatalf("after leave, Peers() = %v, want [10.0.0.3]", peers)
	}
}

func TestHandleTransactionRejectsUnknownSender(t *testing.T) {
	b := &fakeBroadcaster{}
	s := newTestState(b)

	tx := database.NewRegister("alice", "song-a", "hash-a", "sig")
	payload, _ := tx.Serialize()

	s.HandleTransaction("203.0.113.9", payload)
	if s.PoolLen() != 0 {
		t.Fatalf("PoolLen() = %d, want 0 for an unknown sender", s.PoolLen())
	}
}

func TestHandleTransactionAcceptsKnownSender(t *testing.T) {
	b := &fakeBroadcaster{}
	s := newTestState(b)
	s.HandlePeerList(`['10.0.0.1', '10.0.0.2']`)

	tx := database.NewRegister("alice", "song-a", "hash-a", "sig")
	payload, _ := tx.Serialize()

	s.HandleTransaction("10.0.0.2", payload)
	if s.PoolLen() != 1 {
		t.Fatalf("PoolLen() = %d, want 1", s.PoolLen())
	}
}

// S6 Pool threshold: with three pending transactions, exactly one
// mining attempt should produce a block, and the remaining two stay
// pending for the next one.
func TestMineStepHonorsPoolThreshold(t *testing.T) {
	b := &fakeBroadcaster{}
	s := newTestState(b)
	s.HandlePeerList(`['10.0.0.1', '10.0.0.2']`)

	for i := 0; i < 2; i++ {
		tx := database.NewRegister(fmt.Sprintf("user-%d", i), "song", "hash", "sig")
		s.SubmitTransaction(tx)
	}

	mined, err := s.MineStep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if mined {
		t.Fatal("expected no block with only 2 pending transactions")
	}

	tx := database.NewRegister("user-2", "song", "hash", "sig")
	s.SubmitTransaction(tx)

	mined, err = s.MineStep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !mined {
		t.Fatal("expected a block once the pool reached the threshold")
	}
	if s.PoolLen() != 2 {
		t.Fatalf("PoolLen() = %d, want 2 remaining after mining one", s.PoolLen())
	}
	if s.ChainLen() != 2 {
		t.Fatalf("ChainLen() = %d, want 2 (genesis + 1 mined block)", s.ChainLen())
	}
	if len(b.blocks) != 1 {
		t.Fatalf("broadcast block count = %d, want 1", len(b.blocks))
	}

	mined, err = s.MineStep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if mined {
		t.Fatal("expected no further block with only 2 transactions remaining")
	}
}

func TestMineStepRespectsDisconnect(t *testing.T) {
	b := &fakeBroadcaster{}
	s := newTestState(b)
	s.Disconnect()

	mined, err := s.MineStep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if mined {
		t.Fatal("expected MineStep to no-op once disconnected")
	}
}

func TestHandleReqChangeAdoptsLongerValidChain(t *testing.T) {
	b := &fakeBroadcaster{}
	s := newTestState(b)
	s.HandlePeerList(`['placeholder', '10.0.0.9']`)

	genesisHash := s.ChainTail().ComputeHash()
	longer := mineLinkedBlocks(t, 3, genesisHash)
	dump := serializeChainDump(t, longer)

	s.HandleReqChange("10.0.0.9", dump)

	if s.ChainLen() != 4 {
		t.Fatalf("ChainLen() = %d, want 4 (genesis + 3)", s.ChainLen())
	}
}

func TestHandleReqChangeRejectsInvalidChain(t *testing.T) {
	b := &fakeBroadcaster{}
	s := newTestState(b)
	s.HandlePeerList(`['placeholder', '10.0.0.9']`)

	s.HandleReqChange("10.0.0.9", "not-even-a-chain-dump")

	if s.ChainLen() != 1 {
		t.Fatalf("ChainLen() = %d, want 1 (unchanged genesis-only chain)", s.ChainLen())
	}
}

func TestHandleReqChangeRejectsUnknownSender(t *testing.T) {
	b := &fakeBroadcaster{}
	s := newTestState(b)

	genesisHash := s.ChainTail().ComputeHash()
	longer := mineLinkedBlocks(t, 3, genesisHash)
	dump := serializeChainDump(t, longer)

	s.HandleReqChange("10.0.0.99", dump)

	if s.ChainLen() != 1 {
		t.Fatalf("ChainLen() = %d, want 1 (unknown sender's chain must not be adopted)", s.ChainLen())
	}
}

func mineLinkedBlocks(t *testing.T, n int, genesisHash string) []database.Block {
	t.Helper()
	blocks := make([]database.Block, 0, n)
	prev := genesisHash
	for i := 1; i <= n; i++ {
		blk := database.NewCandidateBlock(uint64(i), "tx", prev, "sig", "easy")
		if err := blk.Mine(context.Background()); err != nil {
			t.Fatal(err)
		}
		blocks = append(blocks, blk)
		prev = blk.Hash
	}
	return blocks
}

func serializeChainDump(t *testing.T, blocks []database.Block) string {
	t.Helper()
	parts := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		s, err := blk.Serialize()
		if err != nil {
			t.Fatal(err)
		}
		parts = append(parts, s)
	}
	return wire.JoinChainDump(parts)
}
