// Package bolt is a single-file store for running the local server without
// AWS. Each user document is a JSON object updated read-modify-write inside one
// bolt transaction.
package bolt

import (
	"errors"
	"time"

	"github.com/boltdb/bolt"
)

var (
	tokenBucket = []byte("tokens")
	linkBucket  = []byte("links")
	fileBucket  = []byte("files")
)

// Driver owns the bolt database handle.
type Driver struct {
	store *bolt.DB
}

// Open opens the bolt database at path and creates the buckets.
func (d *Driver) Open(path string) error {
	if d.store != nil {
		return errors.New("store already open")
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{tokenBucket, linkBucket, fileBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return err
	}

	d.store = db
	return nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	if d.store != nil {
		err := d.store.Close()
		d.store = nil
		return err
	}
	return nil
}
