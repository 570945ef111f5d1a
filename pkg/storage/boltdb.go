package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/zerocon/pkg/log"
	"github.com/cuemby/zerocon/pkg/store"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketViewState = []byte("view_state")
	bucketMeta      = []byte("meta")

	keyServer = []byte("server")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db     *bolt.DB
	logger zerolog.Logger
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the database at path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	// A second console holding the file makes Open wait, not hang
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketViewState, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, logger: log.WithComponent("storage")}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveView stores the view of resource, replacing any previous one
func (s *BoltStore) SaveView(resource string, view store.View) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode view %s: %w", resource, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketViewState).Put([]byte(resource), data)
	})
}

// LoadView returns the saved view of resource or ErrNotFound
func (s *BoltStore) LoadView(resource string) (store.View, error) {
	var view store.View
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketViewState).Get([]byte(resource))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, resource)
		}
		return json.Unmarshal(data, &view)
	})
	return view, err
}

// DeleteView forgets the view of resource
func (s *BoltStore) DeleteView(resource string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketViewState).Delete([]byte(resource))
	})
}

// ListViews returns every saved view keyed by resource
func (s *BoltStore) ListViews() (map[string]store.View, error) {
	views := make(map[string]store.View)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketViewState).ForEach(func(k, v []byte) error {
			var view store.View
			if err := json.Unmarshal(v, &view); err != nil {
				return fmt.Errorf("decode view %s: %w", k, err)
			}
			views[string(k)] = view
			return nil
		})
	})
	return views, err
}

// BindServer records server as the owner of the saved views. Switching to
// another server clears them in the same transaction.
func (s *BoltStore) BindServer(server string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		prev := meta.Get(keyServer)
		if prev != nil && string(prev) == server {
			return nil
		}

		if prev != nil {
			s.logger.Info().
				Str("previous", string(prev)).
				Str("server", server).
				Msg("Server changed, clearing saved views")
			if err := tx.DeleteBucket(bucketViewState); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(bucketViewState); err != nil {
				return err
			}
		}
		return meta.Put(keyServer, []byte(server))
	})
}
