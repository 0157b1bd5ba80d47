package database

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/songledger/songledger/foundation/blockchain/difficulty"
	"github.com/songledger/songledger/foundation/blockchain/hashutil"
)

// genesisData and genesisPreviousHash are the fixed literals the genesis
// block is built from.
const (
	genesisData         = "Genesis Block"
	genesisPreviousHash = "0"
	genesisSignature    = "Genesis Block"
)

// Block is a hash-linked record embedding one serialized transaction (or
// the genesis literal). Hash caches the digest taken when the block was
// mined or parsed and goes stale if a field changes afterwards; Serialize
// always re-derives it, and IsValid compares it against a fresh
// ComputeHash to detect such changes.
type Block struct {
	Index        uint64
	Timestamp    string
	Data         string
	PreviousHash string
	Signature    string
	Difficulty   difficulty.Level
	Nonce        uint64
	MineTime     float64 // seconds; -1 until Mine has run
	Hash         string  // snapshot taken at Mine/ParseBlock time; ComputeHash is always live
	MrklRoot     string  // present but unused in consensus
}

// NewGenesisBlock constructs the unmined genesis block: index 0, the
// fixed "Genesis Block" data and previous_hash "0", easy difficulty. The
// caller is expected to call Mine on it before first use.
func NewGenesisBlock() Block {
	return Block{
		Index:        0,
		Timestamp:    time.Now().Format(TimeLayout),
		Data:         genesisData,
		PreviousHash: genesisPreviousHash,
		Signature:    genesisSignature,
		Difficulty:   difficulty.Easy,
		Nonce:        0,
		MineTime:     -1,
		MrklRoot:     hashutil.MerkleRoot([]string{genesisData}),
	}
}

// NewCandidateBlock constructs an unmined block carrying a single
// transaction's serialized payload, ready for the mining engine to run
// Mine against it.
func NewCandidateBlock(index uint64, data, previousHash, signature string, level difficulty.Level) Block {
	return Block{
		Index:        index,
		Timestamp:    time.Now().Format(TimeLayout),
		Data:         data,
		PreviousHash: previousHash,
		Signature:    signature,
		Difficulty:   level,
		Nonce:        0,
		MineTime:     -1,
		MrklRoot:     hashutil.MerkleRoot([]string{data}),
	}
}

// ComputeHash derives the block's hash from index, timestamp,
// previous_hash, nonce and data, in that order, per the wire spec.
func (b Block) ComputeHash() string {
	s := strconv.FormatUint(b.Index, 10) + b.Timestamp + b.PreviousHash +
		strconv.FormatUint(b.Nonce, 10) + b.Data
	return hashutil.HashString(s)
}

// Mine searches for a nonce, starting from the block's current Nonce
// (normally zero), such that ComputeHash satisfies the block's
// difficulty predicate. It is preemptible: ctx cancellation is checked
// on every iteration so a peer shutting down doesn't leave the mining
// loop spinning.
func (b *Block) Mine(ctx context.Context) error {
	start := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hash := b.ComputeHash()
		if difficulty.Meets(hash, b.Difficulty) {
			break
		}
		b.Nonce++
	}

	elapsed := time.Since(start).Seconds()
	b.MineTime = roundTo2(elapsed)
	b.Hash = b.ComputeHash()
	return nil
}

func roundTo2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

// blockWire is the on-the-wire JSON shape: every value is a string, per
// the external interface definition.
type blockWire struct {
	Hash         string `json:"hash"`
	Index        string `json:"index"`
	Timestamp    string `json:"timestamp"`
	MineTime     string `json:"mine_time"`
	Data         string `json:"data"`
	PreviousHash string `json:"previous_hash"`
	Signature    string `json:"signature"`
	Difficulty   string `json:"difficulty"`
	Nonce        string `json:"nonce"`
}

// Serialize re-derives the block's hash and renders it as the wire JSON
// object. mrkl_root is intentionally omitted; it's carried on the struct
// but never placed on the wire.
func (b Block) Serialize() (string, error) {
	w := blockWire{
		Hash:         b.ComputeHash(),
		Index:        strconv.FormatUint(b.Index, 10),
		Timestamp:    b.Timestamp,
		MineTime:     strconv.FormatFloat(b.MineTime, 'f', -1, 64),
		Data:         b.Data,
		PreviousHash: b.PreviousHash,
		Signature:    b.Signature,
		Difficulty:   string(b.Difficulty),
		Nonce:        strconv.FormatUint(b.Nonce, 10),
	}

	buf, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// ParseBlock decodes a block previously produced by Serialize. The
// returned block's MrklRoot is recomputed from Data since it isn't
// carried on the wire.
func ParseBlock(data string) (Block, string, error) {
	var w blockWire
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return Block{}, "", err
	}

	index, err := strconv.ParseUint(w.Index, 10, 64)
	if err != nil {
		return Block{}, "", err
	}
	nonce, err := strconv.ParseUint(w.Nonce, 10, 64)
	if err != nil {
		return Block{}, "", err
	}
	mineTime, err := strconv.ParseFloat(w.MineTime, 64)
	if err != nil {
		return Block{}, "", err
	}

	b := Block{
		Index:        index,
		Timestamp:    w.Timestamp,
		Data:         w.Data,
		PreviousHash: w.PreviousHash,
		Signature:    w.Signature,
		Difficulty:   difficulty.Level(w.Difficulty),
		Nonce:        nonce,
		MineTime:     mineTime,
		Hash:         w.Hash,
		MrklRoot:     hashutil.MerkleRoot([]string{w.Data}),
	}

	return b, w.Hash, nil
}
