package tower

import (
	"fmt"

	"github.com/towerbft/consensus-core/blockstore"
	"github.com/towerbft/consensus-core/types"
)

// Blockstore is the read/write ledger-metadata collaborator
// ReconcileBlockstoreRootsWithTower needs. It is implemented by
// blockstore.Store.
type Blockstore interface {
	LastRoot() (types.Slot, error)
	SlotMetaIterator(from types.Slot) ([]blockstore.SlotMeta, error)
	SetRoots(roots []types.Slot) error
}

// ReconcileBlockstoreRootsWithTower repairs a startup race: the tower file is
// persisted before the blockstore's roots are committed, so a process that
// crashes in between restarts with a blockstore root strictly behind the
// restored tower's root. Every slot from last_root+1 through the tower's
// root, inclusive, is marked rooted.
func (t *Tower) ReconcileBlockstoreRootsWithTower(bs Blockstore) error {
	towerRoot, ok := t.RootSlot()
	if !ok {
		return nil
	}

	lastRoot, err := bs.LastRoot()
	if err != nil {
		return fmt.Errorf("reconcile blockstore roots: %w", err)
	}
	if lastRoot >= towerRoot {
		return nil
	}

	metas, err := bs.SlotMetaIterator(lastRoot + 1)
	if err != nil {
		return fmt.Errorf("reconcile blockstore roots: %w", err)
	}

	var toRoot []types.Slot
	for _, m := range metas {
		if m.Slot > towerRoot {
			break
		}
		if !m.Rooted {
			toRoot = append(toRoot, m.Slot)
		}
	}
	if len(toRoot) == 0 {
		return nil
	}

	if err := bs.SetRoots(toRoot); err != nil {
		return fmt.Errorf("reconcile blockstore roots: %w", err)
	}
	return nil
}
