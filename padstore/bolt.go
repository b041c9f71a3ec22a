package padstore

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltBucket = "store"

// Bolt keeps Etherpad records in one bbolt bucket.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens or creates a bbolt file.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("padstore: open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("padstore: init bolt %s: %w", path, err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		// values are only valid inside the transaction
		if v := tx.Bucket([]byte(boltBucket)).Get([]byte(key)); v != nil {
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, value != nil, nil
}

func (b *Bolt) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte(key), value)
	})
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
