// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package zones

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

const badgerPrefix = "zone:"

// BadgerStore keeps zones as JSON under "zone:<id>".
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens the database directory at path. An empty path opens
// an in-memory instance.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(id string) []byte { return []byte(badgerPrefix + id) }

func (s *BadgerStore) List(_ context.Context) ([]Zone, error) {
	out := []Zone{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var z Zone
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &z)
			}); err != nil {
				return err
			}
			out = append(out, z)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortZones(out)
	return out, nil
}

func (s *BadgerStore) Get(_ context.Context, id string) (Zone, error) {
	var z Zone
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &z)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Zone{}, ErrNotFound
	}
	return z, err
}

func (s *BadgerStore) Put(_ context.Context, z Zone) error {
	if err := z.Validate(); err != nil {
		return err
	}
	buf, err := json.Marshal(z)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(z.ID), buf)
	})
}

func (s *BadgerStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(badgerKey(id))
	})
}

func (s *BadgerStore) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }
