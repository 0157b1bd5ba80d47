package state

import "github.com/songledger/songledger/foundation/blockchain/database"

// resolveChain applies the longest-chain, smallest-tail-hash
// tie-break rule. received and local are both non-genesis slices;
// received has already been validated by the caller (non-empty,
// hash-linked). chain is replaced in place when received wins.
func resolveChain(chain *database.Chain, received, local []database.Block) {
	switch {
	case len(received) > len(local):
		chain.ReplaceNonGenesis(received)
	case len(received) == len(local):
		if len(received) == 0 {
			return
		}
		if received[len(received)-1].Hash < local[len(local)-1].Hash {
			chain.ReplaceNonGenesis(received)
		}
	}
	// len(received) < len(local): keep local, no-op.
}
