// ABOUTME: Local BadgerDB-backed clients for tests and offline use
// ABOUTME: Mirrors the charm/kv surface without a charm server

package charm

import (
	"fmt"
	"os"
	"testing"

	"github.com/dgraph-io/badger/v3"
)

// localKV implements kvStore directly on BadgerDB.
type localKV struct {
	db *badger.DB
}

func (l *localKV) Get(key []byte) ([]byte, error) {
	var result []byte
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	return result, err
}

func (l *localKV) Set(key, value []byte) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (l *localKV) Delete(key []byte) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (l *localKV) Keys() ([][]byte, error) {
	var keys [][]byte
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

func (l *localKV) Sync() error {
	return nil
}

func (l *localKV) Reset() error {
	return l.db.DropAll()
}

// OpenLocalClient opens a client over a BadgerDB in dir that never syncs.
func OpenLocalClient(dir string) (*Client, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	// Suppress badger logs
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Client{
		kv:     &localKV{db: db},
		config: &Config{Host: "localhost", AutoSync: false},
		local:  true,
		closer: db.Close,
	}, nil
}

// NewTestClient creates a local client in a temporary directory that is
// removed when the test ends.
func NewTestClient(t testing.TB) *Client {
	t.Helper()

	c, err := OpenLocalClient(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open test client: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})

	return c
}
