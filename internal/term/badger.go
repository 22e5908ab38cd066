package term

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerBackend is an opt-in, disk-backed Backend for runs whose term count
// would not comfortably fit in memory. It mirrors the shape of
// MemoryBackend (same Backend interface, same Record type) so
// Store's hash-consing logic does not know or care which one it is talking
// to — the split mirrors how the wider codebase offers both a MemoryCache
// and a FileCache behind one Cache interface for task results.
//
// Unlike the snapshot file (the single source of truth for resumption),
// BadgerBackend is a cache: deleting its directory only costs re-deriving
// already-computed terms, never correctness.
type BadgerBackend struct {
	db *badger.DB

	// len is tracked alongside the db because Badger has no O(1) key count;
	// counting via iteration on every Len() call would make guard checks
	// (consulted on every insertion) scale badly with store size.
	len int
}

// OpenBadgerBackend opens (creating if necessary) a Badger database rooted
// at dir for use as a term store backend.
func OpenBadgerBackend(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("term store: opening badger db: %w", err)
	}

	b := &BadgerBackend{db: db}
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		n := 0
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		b.len = n
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("term store: counting existing entries: %w", err)
	}
	return b, nil
}

// Close releases the underlying Badger database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

type badgerRecord struct {
	Sym      string `json:"sym"`
	Scale    int    `json:"scale"`
	Children []ID   `json:"children"`
}

func (b *BadgerBackend) Has(id ID) (bool, error) {
	var found bool
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (b *BadgerBackend) Get(id ID) (Record, error) {
	var rec Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var br badgerRecord
			if err := json.Unmarshal(val, &br); err != nil {
				return err
			}
			rec = Record{Sym: br.Sym, Scale: br.Scale, Children: br.Children}
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return Record{}, fmt.Errorf("term store: unknown id %q", id)
	}
	return rec, err
}

func (b *BadgerBackend) Put(id ID, rec Record) error {
	exists, err := b.Has(id)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	data, err := json.Marshal(badgerRecord{Sym: rec.Sym, Scale: rec.Scale, Children: rec.Children})
	if err != nil {
		return err
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(id), data)
	}); err != nil {
		return err
	}
	b.len++
	return nil
}

func (b *BadgerBackend) Len() (int, error) {
	return b.len, nil
}

func (b *BadgerBackend) Iterate(fn func(ID, Record) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := ID(append([]byte(nil), item.Key()...))
			var rec Record
			err := item.Value(func(val []byte) error {
				var br badgerRecord
				if err := json.Unmarshal(val, &br); err != nil {
					return err
				}
				rec = Record{Sym: br.Sym, Scale: br.Scale, Children: br.Children}
				return nil
			})
			if err != nil {
				return err
			}
			if err := fn(id, rec); err != nil {
				return err
			}
		}
		return nil
	})
}
