// Package persistence durably stores blocks, transactions and
// snapshots so a node can recover its chain state after a restart
// without replaying gossip from genesis.
package persistence

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aurum-chain/aurum/internal/chainerr"
	"github.com/aurum-chain/aurum/internal/ledger"
)

// Store is the durable backing for a Ledger: one badger database holding
// blocks by height, blocks by hash, and transactions by id, following
// spec.md section 5's key schema.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a badger database rooted at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, chainerr.Wrap(chainerr.StorageFailure, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func heightKey(height uint64) []byte {
	var b [len("block:h:") + 8]byte
	copy(b[:], "block:h:")
	binary.BigEndian.PutUint64(b[len("block:h:"):], height)
	return b[:]
}

func hashKey(hash string) []byte { return []byte("block:x:" + hash) }

func txKey(id string) []byte { return []byte("tx:" + id) }

// PutBlock writes block under both its height and hash keys, and
// indexes every transaction it carries by id, in one atomic badger
// transaction.
func (s *Store) PutBlock(block *ledger.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}
	hash := ledger.HashHeader(&block.Header)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(heightKey(block.Header.Height), data); err != nil {
			return err
		}
		if err := txn.Set(hashKey(hash), data); err != nil {
			return err
		}
		for i := range block.Transactions {
			tx := &block.Transactions[i]
			ref := blockRef{BlockHash: hash, Height: block.Header.Height, Index: i}
			refData, err := json.Marshal(ref)
			if err != nil {
				return err
			}
			if err := txn.Set(txKey(tx.ID), refData); err != nil {
				return err
			}
		}
		return nil
	})
}

// blockRef locates a transaction within the block that confirmed it.
type blockRef struct {
	BlockHash string `json:"blockHash"`
	Height    uint64 `json:"height"`
	Index     int    `json:"index"`
}

// BlockByHeight reads the block stored at height.
func (s *Store) BlockByHeight(height uint64) (*ledger.Block, error) {
	return s.readBlock(heightKey(height))
}

// BlockByHash reads the block stored under hash.
func (s *Store) BlockByHash(hash string) (*ledger.Block, error) {
	return s.readBlock(hashKey(hash))
}

func (s *Store) readBlock(key []byte) (*ledger.Block, error) {
	var block ledger.Block
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &block)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, chainerr.New(chainerr.InvalidParent, "block not found")
	}
	if err != nil {
		return nil, chainerr.Wrap(chainerr.StorageFailure, err)
	}
	return &block, nil
}

// TransactionRef locates which block confirmed transaction id.
func (s *Store) TransactionRef(id string) (blockRef, bool) {
	var ref blockRef
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(txKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ref)
		})
	})
	return ref, err == nil
}

// Height returns the highest block height written, or 0 if the store is
// empty.
func (s *Store) Height() (uint64, bool) {
	var height uint64
	var found bool
	prefix := []byte("block:h:")
	s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().Key()
			h := binary.BigEndian.Uint64(k[len(prefix):])
			if !found || h > height {
				height = h
				found = true
			}
		}
		return nil
	})
	return height, found
}

// Sync flushes any buffered writes to disk. The node calls it once, on
// shutdown; PutBlock does not call it.
func (s *Store) Sync() error {
	if err := s.db.Sync(); err != nil {
		return fmt.Errorf("persistence: sync: %w", err)
	}
	return nil
}
