// Package badger keeps the bot state in an embedded Badger key-value store.
// Records are JSON values under prefixed keys.
package badger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const (
	userPrefix      = "user:"
	tokenPrefix     = "token:"
	executionPrefix = "exec:"
	recordPrefix    = "record:"
)

// DB wraps badger.DB for dependency injection.
type DB struct {
	db *badger.DB
}

// Open opens (or creates) a Badger database at dir.
// An empty dir opens an in-memory database.
func Open(dir string) (*DB, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
		opts.Compression = options.Snappy
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return jsonUnmarshal(val, v)
	})
}

func jsonUnmarshal(val []byte, v any) error {
	return json.Unmarshal(val, v)
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
