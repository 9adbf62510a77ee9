package p2p

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// dedupCacheSize is the minimum number of recently-seen content hashes
// kept per message kind, per spec.md section 4.3's broadcast storm
// mitigation. hashicorp/golang-lru gives us eviction for free instead of
// a hand-rolled map-plus-TTL sweep.
const dedupCacheSize = 4096

// dedupper decides whether a gossip message has already been seen,
// keyed by the SHA-256 of its payload. One cache per message type keeps
// a flood of transactions from evicting recently-seen block hashes.
type dedupper struct {
	mu     sync.Mutex
	caches map[MessageType]*lru.Cache
}

func newDedupper() *dedupper {
	return &dedupper{caches: make(map[MessageType]*lru.Cache)}
}

// seen reports whether this exact payload for msgType has been observed
// before, and records it if not.
func (d *dedupper) seen(msgType MessageType, payload []byte) bool {
	d.mu.Lock()
	cache, ok := d.caches[msgType]
	if !ok {
		cache, _ = lru.New(dedupCacheSize)
		d.caches[msgType] = cache
	}
	d.mu.Unlock()

	h := sha256.Sum256(payload)
	key := hex.EncodeToString(h[:])
	if _, exists := cache.Get(key); exists {
		return true
	}
	cache.Add(key, struct{}{})
	return false
}
