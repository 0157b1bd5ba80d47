package database

import (
	"context"

	"github.com/songledger/songledger/foundation/blockchain/difficulty"
	"github.com/songledger/songledger/foundation/blockchain/hashutil"
)

// Chain is an ordered sequence of blocks starting from a fixed genesis.
// It is strictly append-only from the outside; the state package is
// allowed to replace everything after the genesis during conflict
// resolution, but the genesis itself is never touched.
//
// Chain carries no locking of its own — callers (foundation/blockchain/state)
// are expected to serialize access per the chain -> pool -> peer-set
// acquisition order documented there.
type Chain struct {
	Blocks []Block
}

// NewChain builds a chain whose only member is a freshly mined genesis
// block. Mining the genesis never fails: there is no context to cancel,
// and Easy difficulty (five leading hex zeros) takes about a million
// hash attempts on average.
func NewChain() *Chain {
	genesis := NewGenesisBlock()
	if err := genesis.Mine(context.Background()); err != nil {
		panic("database: genesis mining failed: " + err.Error())
	}
	return &Chain{Blocks: []Block{genesis}}
}

// Tail returns the last block in the chain.
func (c *Chain) Tail() Block {
	return c.Blocks[len(c.Blocks)-1]
}

// Len returns the number of blocks, including genesis.
func (c *Chain) Len() int {
	return len(c.Blocks)
}

// NonGenesis returns every block after the genesis block.
func (c *Chain) NonGenesis() []Block {
	if len(c.Blocks) <= 1 {
		return nil
	}
	return c.Blocks[1:]
}

// AddBlock validates block against the chain's tail and, if valid,
// appends it. senderAddr, when non-empty, is the network address the
// block arrived from; when present the block's signature must match
// H(senderAddr) (self-mined blocks pass an empty senderAddr and skip
// this check). declaredHash is the hash the sender claims for the
// block (or the block's own freshly mined Hash, for self-mined blocks),
// checked against a live recomputation to catch tampering.
//
// Validation order, in the order specified:
//  1. sender signature (if senderAddr given)
//  2. declaredHash matches a fresh ComputeHash (tamper check)
//  3. previous_hash links to the tail's hash (skipped if the tail is
//     still the unmined genesis placeholder)
//  4. declaredHash satisfies the block's difficulty predicate
//  5. no existing block shares this hash
func (c *Chain) AddBlock(block Block, declaredHash string, senderAddr string) bool {
	last := c.Tail()

	if senderAddr != "" && block.Signature != hashutil.HashString(senderAddr) {
		return false
	}

	if declaredHash != block.ComputeHash() {
		return false
	}

	if block.PreviousHash != last.ComputeHash() && last.Data != genesisData {
		return false
	}

	if !difficulty.Meets(declaredHash, block.Difficulty) {
		return false
	}

	for _, b := range c.Blocks {
		if b.ComputeHash() == block.ComputeHash() {
			return false
		}
	}

	block.Hash = declaredHash
	c.Blocks = append(c.Blocks, block)
	return true
}

// IsValid checks the hash-link and tamper invariants across every
// adjacent pair of blocks: each block's stored Hash must match a fresh
// recomputation, and each block's previous_hash must match the prior
// block's fresh recomputation.
func (c *Chain) IsValid() bool {
	for i := 1; i < len(c.Blocks); i++ {
		curr := c.Blocks[i]
		prev := c.Blocks[i-1]
		if curr.Hash != curr.ComputeHash() {
			return false
		}
		if curr.PreviousHash != prev.ComputeHash() {
			return false
		}
	}
	return true
}

// IsValidBlocks runs the same adjacency checks as IsValid over a bare
// slice of non-genesis blocks received from a peer, before they are
// spliced onto the local genesis.
func IsValidBlocks(blocks []Block) bool {
	if len(blocks) == 0 {
		return false
	}
	for i := 1; i < len(blocks); i++ {
		curr := blocks[i]
		prev := blocks[i-1]
		if curr.Hash != curr.ComputeHash() {
			return false
		}
		if curr.PreviousHash != prev.ComputeHash() {
			return false
		}
	}
	return true
}

// ReplaceNonGenesis swaps everything after the genesis block for blocks,
// preserving the local genesis as head. Used by conflict resolution.
func (c *Chain) ReplaceNonGenesis(blocks []Block) {
	c.Blocks = append(c.Blocks[:1], blocks...)
}
