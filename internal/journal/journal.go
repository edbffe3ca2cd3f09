// Package journal persists recovery records for destructive land steps.
// When a ref is deleted or a commit is stripped, the ref name, its last
// known commit and the command that restores it are written here, so the
// recovery instructions printed to the console are also durable on disk.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

var bucketRecovery = []byte("recovery")

// Entry is one recovery record.
type Entry struct {
	Ref        string    `json:"ref"`
	Commit     string    `json:"commit"`
	Action     string    `json:"action"`  // what was destroyed, e.g. "deleted branch"
	Restore    string    `json:"restore"` // the exact command that restores it
	RecordedAt time.Time `json:"recordedAt"`
}

// Journal is a bbolt-backed append-only log of recovery entries.
type Journal struct {
	db *bbolt.DB
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketRecovery)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends a recovery entry.
func (j *Journal) Record(entry Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecovery)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, data)
	})
}

// Entries returns all recovery entries, oldest first.
func (j *Journal) Entries() ([]Entry, error) {
	var entries []Entry
	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecovery).ForEach(func(_, value []byte) error {
			var entry Entry
			if err := json.Unmarshal(value, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
