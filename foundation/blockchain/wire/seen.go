package wire

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// seenCacheSize bounds how many recently-seen block/transaction hashes
// the dispatcher remembers. Entries never expire by time; once the
// cache is full, the least recently used entry is evicted.
const seenCacheSize = 4096

// SeenCache deduplicates inbound blocks and transactions that reach a
// peer more than once — an unavoidable consequence of every peer
// broadcasting to every other peer on acceptance. It is not part of the
// consensus rules; it only avoids redundant add_block/pool-append work
// and redundant log noise for a message this node has already
// processed.
type SeenCache struct {
	blocks *lru.Cache[string, struct{}]
	txs    *lru.Cache[string, struct{}]
}

// NewSeenCache constructs a cache bounded to seenCacheSize entries per
// message class.
func NewSeenCache() *SeenCache {
	blocks, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		panic("wire: invalid seen-block cache size: " + err.Error())
	}
	txs, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		panic("wire: invalid seen-tx cache size: " + err.Error())
	}
	return &SeenCache{blocks: blocks, txs: txs}
}

// SeenBlock reports whether hash was already recorded, and records it
// if not — a single call both checks and marks.
func (c *SeenCache) SeenBlock(hash string) bool {
	if _, ok := c.blocks.Get(hash); ok {
		return true
	}
	c.blocks.Add(hash, struct{}{})
	return false
}

// SeenTransaction reports whether signature+songName+timestamp was
// already recorded, and records it if not.
func (c *SeenCache) SeenTransaction(key string) bool {
	if _, ok := c.txs.Get(key); ok {
		return true
	}
	c.txs.Add(key, struct{}{})
	return false
}
