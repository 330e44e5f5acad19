// Package blockstore is a minimal embedded-LSM-backed implementation of the
// read/write collaborator reconcile_blockstore_roots_with_tower expects:
// last_root, slot_meta_iterator, and set_roots. It is a supplemental,
// concrete stand-in for the external ledger store the core only ever
// consumes through an interface.
package blockstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/towerbft/consensus-core/types"
)

var metaPrefix = []byte("meta/")
var lastRootKey = []byte("last_root")

// SlotMeta records whether a slot has been marked rooted.
type SlotMeta struct {
	Slot   types.Slot
	Rooted bool
}

// Store wraps a goleveldb database keyed by slot.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) the LSM store at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("blockstore: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func slotKey(slot types.Slot) []byte {
	key := make([]byte, len(metaPrefix)+8)
	copy(key, metaPrefix)
	binary.BigEndian.PutUint64(key[len(metaPrefix):], uint64(slot))
	return key
}

// LastRoot returns the highest slot committed via SetRoots, or 0 if none has
// been recorded yet.
func (s *Store) LastRoot() (types.Slot, error) {
	v, err := s.db.Get(lastRootKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("blockstore: read last root: %w", err)
	}
	return types.Slot(binary.BigEndian.Uint64(v)), nil
}

// SlotMetaIterator returns the metadata for every slot with a recorded meta
// entry at or above from, ascending.
func (s *Store) SlotMetaIterator(from types.Slot) ([]SlotMeta, error) {
	rng := util.BytesPrefix(metaPrefix)
	rng.Start = slotKey(from)

	iter := s.db.NewIterator(rng, nil)
	defer iter.Release()

	var metas []SlotMeta
	for iter.Next() {
		key := iter.Key()
		slot := types.Slot(binary.BigEndian.Uint64(key[len(metaPrefix):]))
		rooted := len(iter.Value()) > 0 && iter.Value()[0] == 1
		metas = append(metas, SlotMeta{Slot: slot, Rooted: rooted})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("blockstore: iterate slot metas: %w", err)
	}
	return metas, nil
}

// SetRoots marks every slot in roots as rooted and advances the stored last
// root to the maximum slot seen, in a single batch.
func (s *Store) SetRoots(roots []types.Slot) error {
	if len(roots) == 0 {
		return nil
	}

	batch := new(leveldb.Batch)
	var maxRoot types.Slot
	for _, slot := range roots {
		batch.Put(slotKey(slot), []byte{1})
		if slot > maxRoot {
			maxRoot = slot
		}
	}

	current, err := s.LastRoot()
	if err != nil {
		return err
	}
	if maxRoot > current {
		lastRootVal := make([]byte, 8)
		binary.BigEndian.PutUint64(lastRootVal, uint64(maxRoot))
		batch.Put(lastRootKey, lastRootVal)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("blockstore: write roots: %w", err)
	}
	return nil
}
