package v1

import (
	"errors"

	"github.com/songledger/songledger/foundation/blockchain/database"
	"github.com/songledger/songledger/foundation/blockchain/state"
)

var (
	errNotOwner = errors.New("songs: transfer submitted by a non-owner")
	errBadCount = errors.New("chain: n must be a positive integer")
)

// currentOwner scans the local chain tail-to-head for the most recent
// Register/Transfer touching songName and reports its resulting owner.
// This is the only ownership check: the mining step and AddBlock do not
// inspect the transaction payload, so a Transfer that reaches the pool
// some other way is mined without one.
func currentOwner(st *state.State, songName string) (string, bool) {
	blocks := st.ChainBlocks()
	for i := len(blocks) - 1; i >= 1; i-- {
		tx, err := database.ParseTransaction(blocks[i].Data)
		if err != nil || tx.SongName != songName {
			continue
		}
		switch tx.Kind {
		case database.KindTransfer:
			return tx.OtherUser, true
		case database.KindRegister:
			return tx.UserName, true
		}
	}
	return "", false
}

// songHashFor returns the song_hash recorded on the most recent
// transaction touching songName, so a Transfer doesn't need its own
// file-hashing round trip.
func songHashFor(st *state.State, songName string) string {
	blocks := st.ChainBlocks()
	for i := len(blocks) - 1; i >= 1; i-- {
		tx, err := database.ParseTransaction(blocks[i].Data)
		if err != nil || tx.SongName != songName {
			continue
		}
		return tx.SongHash
	}
	return ""
}
