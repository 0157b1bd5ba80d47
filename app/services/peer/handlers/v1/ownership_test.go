package v1

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/songledger/songledger/foundation/blockchain/database"
	"github.com/songledger/songledger/foundation/blockchain/state"
	"github.com/songledger/songledger/foundation/blockchain/wire"
)

type noopBroadcaster struct{}

func (noopBroadcaster) SendBlock(string, database.Block) error             { return nil }
func (noopBroadcaster) SendTransaction(string, database.Transaction) error { return nil }
func (noopBroadcaster) SendChainDump(string, wire.Kind, []database.Block) error {
	return nil
}
func (noopBroadcaster) RequestChain(string) error { return nil }

func newTestState(t *testing.T) *state.State {
	t.Helper()
	log, err := zap.NewDevelopment()
	if err != nil {
		t.Fatal(err)
	}
	return state.New(state.Config{
		SelfAddr:    "10.0.0.1",
		Log:         log.Sugar(),
		Broadcaster: noopBroadcaster{},
	})
}

func mineUntilBlock(t *testing.T, st *state.State, wantLen int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 1000 && st.ChainLen() < wantLen; i++ {
		if _, err := st.MineStep(ctx); err != nil {
			t.Fatalf("MineStep: %v", err)
		}
	}
	if st.ChainLen() != wantLen {
		t.Fatalf("ChainLen() = %d, want %d", st.ChainLen(), wantLen)
	}
}

func TestCurrentOwnerReflectsLatestRegister(t *testing.T) {
	st := newTestState(t)

	for i := 0; i < 3; i++ {
		tx := database.NewRegister("alice", "hotel-california", "deadbeef", "sig-alice")
		if err := st.SubmitTransaction(tx); err != nil {
			t.Fatalf("SubmitTransaction: %v", err)
		}
	}
	mineUntilBlock(t, st, 2)

	owner, ok := currentOwner(st, "hotel-california")
	if !ok || owner != "alice" {
		t.Fatalf("currentOwner() = (%q, %v), want (alice, true)", owner, ok)
	}
}

func TestCurrentOwnerReflectsLatestTransfer(t *testing.T) {
	st := newTestState(t)

	// The pool is FIFO and mining waits for three pending transactions,
	// so one Register plus two Transfers fill it and the Register is
	// mined first; the next block then carries the first Transfer.
	reg := database.NewRegister("alice", "hotel-california", "deadbeef", "sig-alice")
	if err := st.SubmitTransaction(reg); err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
	for i := 0; i < 2; i++ {
		tx := database.NewTransfer("alice", "hotel-california", "deadbeef", "bob", "sig-alice")
		if err := st.SubmitTransaction(tx); err != nil {
			t.Fatalf("SubmitTransaction: %v", err)
		}
	}
	mineUntilBlock(t, st, 2)

	for i := 0; i < 3; i++ {
		tx := database.NewTransfer("alice", "hotel-california", "deadbeef", "bob", "sig-alice")
		if err := st.SubmitTransaction(tx); err != nil {
			t.Fatalf("SubmitTransaction: %v", err)
		}
	}
	mineUntilBlock(t, st, 3)

	owner, ok := currentOwner(st, "hotel-california")
	if !ok || owner != "bob" {
		t.Fatalf("currentOwner() = (%q, %v), want (bob, true)", owner, ok)
	}

	hash := songHashFor(st, "hotel-california")
	if hash != "deadbeef" {
		t.Fatalf("songHashFor() = %q, want deadbeef", hash)
	}
}

func TestCurrentOwnerUnknownSong(t *testing.T) {
	st := newTestState(t)
	if _, ok := currentOwner(st, "nonexistent"); ok {
		t.Fatal("currentOwner() = ok for a song never registered")
	}
}
