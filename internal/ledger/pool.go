package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/aurum-chain/aurum/internal/chainerr"
)

// DefaultPoolCapacity bounds how many pending transactions the pool will
// hold before further inserts are rejected with PoolFull.
const DefaultPoolCapacity = 10000

// DefaultPoolExpiry is how long an unconfirmed transaction may sit in the
// pool before it is eligible for eviction.
const DefaultPoolExpiry = 30 * time.Minute

// Pool holds unconfirmed transactions awaiting inclusion in a block.
// Entries are stored by value — small, immutable once signed — rather
// than behind shared pointers, so callers never race on a pooled
// transaction's fields.
type Pool struct {
	mu       sync.RWMutex
	byID     map[string]pooledTx
	capacity int
	expiry   time.Duration
}

type pooledTx struct {
	tx      Transaction
	addedAt time.Time
}

// NewPool creates an empty pool with the given capacity and expiry.
func NewPool(capacity int, expiry time.Duration) *Pool {
	return &Pool{
		byID:     make(map[string]pooledTx),
		capacity: capacity,
		expiry:   expiry,
	}
}

// Insert adds tx to the pool. Returns DuplicateTransaction if already
// present, PoolFull if the pool is at capacity.
func (p *Pool) Insert(tx Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.byID[tx.ID]; ok {
		return chainerr.New(chainerr.DuplicateTransaction, "transaction already pooled")
	}
	if len(p.byID) >= p.capacity {
		return chainerr.New(chainerr.PoolFull, "transaction pool is full")
	}
	p.byID[tx.ID] = pooledTx{tx: tx, addedAt: time.Now()}
	return nil
}

// Remove drops a transaction from the pool, e.g. once it is included in
// an accepted block.
func (p *Pool) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byID, id)
}

// Has reports whether id is currently pooled.
func (p *Pool) Has(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byID[id]
	return ok
}

// Get returns the pooled transaction for id, if present.
func (p *Pool) Get(id string) (Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pt, ok := p.byID[id]
	return pt.tx, ok
}

// Len returns the number of pooled transactions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byID)
}

// EvictExpired drops every transaction older than the pool's expiry and
// returns how many were removed.
func (p *Pool) EvictExpired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := time.Now().Add(-p.expiry)
	evicted := 0
	for id, pt := range p.byID {
		if pt.addedAt.Before(cutoff) {
			delete(p.byID, id)
			evicted++
		}
	}
	return evicted
}

// OrderedForBlock returns every pooled transaction ordered by descending
// fee, tie-broken by earliest timestamp then lexicographically smallest
// id, the ordering spec.md section 4.2 requires for block assembly.
func (p *Pool) OrderedForBlock() []Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	txs := make([]Transaction, 0, len(p.byID))
	for _, pt := range p.byID {
		txs = append(txs, pt.tx)
	}
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Fee != txs[j].Fee {
			return txs[i].Fee > txs[j].Fee
		}
		if txs[i].Timestamp != txs[j].Timestamp {
			return txs[i].Timestamp < txs[j].Timestamp
		}
		return txs[i].ID < txs[j].ID
	})
	return txs
}

// All returns every currently pooled transaction, order unspecified.
func (p *Pool) All() []Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	txs := make([]Transaction, 0, len(p.byID))
	for _, pt := range p.byID {
		txs = append(txs, pt.tx)
	}
	return txs
}
