// Package boltjournal keeps a record of verified payment webhooks in an embedded
// BoltDB file, keyed by the webhook checksum.
package boltjournal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	dompay "github.com/JulianR23/Vertex-Store/internal/domain/payment"
)

const bucketName = "webhook_events"

type Journal struct {
	db *bolt.DB
}

var _ dompay.EventJournal = (*Journal)(nil)

// Open opens (or creates) the journal file and ensures its bucket exists.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("boltjournal: create dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltjournal: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltjournal: create bucket: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Lookup(ctx context.Context, checksum string) (*dompay.JournalEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var entry dompay.JournalEntry
	found := false
	err := j.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(checksum))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return nil, false, fmt.Errorf("boltjournal: lookup: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Record stores entry under its checksum. An entry whose outcome is applied is
// never overwritten, so a replay cannot erase the fact that it was applied.
func (j *Journal) Record(ctx context.Context, entry dompay.JournalEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.Checksum == "" {
		return fmt.Errorf("boltjournal: checksum is required")
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("boltjournal: encode: %w", err)
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		key := []byte(entry.Checksum)
		if existing := b.Get(key); existing != nil {
			if bytes.Equal(existing, payload) {
				return nil
			}
			var prior dompay.JournalEntry
			if err := json.Unmarshal(existing, &prior); err == nil && prior.Outcome == dompay.OutcomeApplied {
				return nil
			}
		}
		return b.Put(key, payload)
	})
}

// Count reports how many deliveries are recorded.
func (j *Journal) Count() (int, error) {
	n := 0
	err := j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return n, err
}
