package state

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketBlobs = []byte("blobs")

// #region bolt-store
// BoltStore keeps the latest blob per key in a bbolt file. Writes are
// transactional, so a crash mid-save leaves the previous blob intact.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt init: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveBlob replaces the blob stored under key.
func (s *BoltStore) SaveBlob(key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(key), data)
	})
}

// SaveBlobs replaces every given blob in a single bbolt transaction.
func (s *BoltStore) SaveBlobs(blobs map[string][]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		for k, data := range blobs {
			if data == nil {
				data = []byte{}
			}
			if err := b.Put([]byte(k), data); err != nil {
				return fmt.Errorf("bbolt save %s: %w", k, err)
			}
		}
		return nil
	})
}

// LoadBlob returns the blob under key, or nil, nil if there is none.
func (s *BoltStore) LoadBlob(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// bbolt slices are only valid within the transaction
		if v := tx.Bucket(bucketBlobs).Get([]byte(key)); v != nil {
			out = make([]byte, len(v))
			copy(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bbolt load %s: %w", key, err)
	}
	return out, nil
}

// Keys returns the stored keys in byte order.
func (s *BoltStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// #endregion bolt-store
