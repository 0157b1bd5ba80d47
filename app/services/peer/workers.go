package peer

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/songledger/songledger/foundation/blockchain/database"
	"github.com/songledger/songledger/foundation/blockchain/hashutil"
	"github.com/songledger/songledger/foundation/blockchain/state"
)

// heartbeatInterval is how often the tracker heartbeat loop sends
// KEEPALIVE, per §5's scheduling model.
const heartbeatInterval = 5 * time.Second

// mineRetryInterval is the pause between mining attempts that found
// the pool below threshold or the chain mid conflict-resolution;
// replaces the original's "while self.connected: if not
// conflict_solve: continue" busy loop with a bounded sleep.
const mineRetryInterval = 500 * time.Millisecond

// heartbeatLoop sends KEEPALIVE to the tracker every heartbeatInterval
// until st disconnects or ctx is cancelled.
func heartbeatLoop(ctx context.Context, log *zap.SugaredLogger, st *state.State, client *Client) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !st.Connected() {
				return
			}
			if err := client.Keepalive(); err != nil {
				log.Infow("heartbeat: tracker unreachable, will retry", "error", err)
			}
		}
	}
}

// miningLoop repeatedly calls state.MineStep until st disconnects or
// ctx is cancelled, sleeping mineRetryInterval between attempts that
// didn't mine a block so the loop doesn't spin the CPU while the pool
// is below threshold.
func miningLoop(ctx context.Context, log *zap.SugaredLogger, st *state.State) {
	for {
		if ctx.Err() != nil || !st.Connected() {
			return
		}

		mined, err := st.MineStep(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Infow("mine: step failed", "error", err)
		}

		if !mined {
			select {
			case <-ctx.Done():
				return
			case <-time.After(mineRetryInterval):
			}
		}
	}
}

// syntheticTxInterval bounds, matching the original's
// uniform(5, 10)-second cadence.
const (
	syntheticTxMin = 5 * time.Second
	syntheticTxMax = 10 * time.Second
)

// syntheticTxLoop composes a fixed demo Register transaction every
// 5-10 seconds and submits it through the same path the front-end HTTP
// surface uses, per §4.7.E. songDir/welcome_to_new_york.mp3 is a fixed
// demo song on disk; a missing file degrades to hashutil's FileNotFound sentinel rather
// than failing the loop.
func syntheticTxLoop(ctx context.Context, log *zap.SugaredLogger, st *state.State, songDir string) {
	for {
		wait := syntheticTxMin + time.Duration(rand.Int63n(int64(syntheticTxMax-syntheticTxMin)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if !st.Connected() {
			return
		}

		tx := ComposeRegister(songDir, st.SelfAddr(), "welcome_to_new_york", st.Signature())
		if err := st.SubmitTransaction(tx); err != nil {
			log.Infow("synthetic-tx: submit failed", "error", err)
			continue
		}
		log.Infow("synthetic-tx: submitted", "song", tx.SongName, "pool_len", st.PoolLen())
	}
}

// ComposeRegister builds a Register transaction for songName, hashing
// the file at songDir/songName.mp3. Per §3.E this takes an explicit
// songDir rather than the original's hardcoded "songs/" prefix.
func ComposeRegister(songDir, userName, songName, signature string) database.Transaction {
	path := songDir + "/" + songName + ".mp3"
	hash := hashutil.HashFile(path)
	return database.NewRegister(userName, songName, hash, signature)
}
