package tracker_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/songledger/songledger/app/services/tracker"
)

func newTestTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	log, err := zap.NewDevelopment()
	if err != nil {
		t.Fatal(err)
	}
	return tracker.New(log.Sugar())
}

func TestJoinAddsPeer(t *testing.T) {
	tr := newTestTracker(t)
	tr.Join("10.0.0.1")

	peers := tr.Peers()
	if len(peers) != 1 || peers[0] != "10.0.0.1" {
		t.Fatalf("Peers() = %v, want [10.0.0.1]", peers)
	}
}

func TestJoinPreservesOrderNewestLast(t *testing.T) {
	tr := newTestTracker(t)
	tr.Join("10.0.0.1")
	tr.Join("10.0.0.2")
	tr.Join("10.0.0.3")

	peers := tr.Peers()
	want := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	for i, addr := range want {
		if peers[i] != addr {
			t.Fatalf("Peers() = %v, want %v", peers, want)
		}
	}
}

func TestLeaveRemovesPeer(t *testing.T) {
	tr := newTestTracker(t)
	tr.Join("10.0.0.1")
	tr.Join("10.0.0.2")

	tr.Leave("10.0.0.1")

	peers := tr.Peers()
	if len(peers) != 1 || peers[0] != "10.0.0.2" {
		t.Fatalf("Peers() = %v, want [10.0.0.2]", peers)
	}
}

func TestKeepaliveDoesNotReorder(t *testing.T) {
	tr := newTestTracker(t)
	tr.Join("10.0.0.1")
	tr.Join("10.0.0.2")

	tr.Keepalive("10.0.0.1")

	peers := tr.Peers()
	if peers[0] != "10.0.0.1" || peers[1] != "10.0.0.2" {
		t.Fatalf("Peers() = %v, want order preserved", peers)
	}
}

func TestKeepaliveOnUnregisteredPeerAddsIt(t *testing.T) {
	tr := newTestTracker(t)
	tr.Keepalive("10.0.0.9")

	peers := tr.Peers()
	if len(peers) != 1 || peers[0] != "10.0.0.9" {
		t.Fatalf("Peers() = %v, want [10.0.0.9]", peers)
	}
}

func TestSweepExitsOnCancellation(t *testing.T) {
	tr := newTestTracker(t)
	tr.Join("10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Sweep(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Sweep did not return after context cancellation")
	}
}
