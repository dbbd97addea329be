// Package storage persists upload stamps between publish runs.
package storage

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	bolt "go.etcd.io/bbolt"

	"github.com/and3rson/yagni/pkg/types"
)

// LedgerFile is the default ledger location, relative to the project root.
const LedgerFile = ".upload-stamps.db"

var uploadsBucket = []byte("uploads")

// UploadRecord describes one successfully uploaded artifact.
type UploadRecord struct {
	File       string        `json:"file"`
	Digest     string        `json:"digest"`
	Index      string        `json:"index"`
	UploadedAt types.UTCTime `json:"uploadedAt"`
}

// Ledger is an on-disk record of which artifacts have already been uploaded
// to which index. It lets repeated publish runs skip work that is already
// done.
type Ledger struct {
	db *bolt.DB
}

// OpenLedger opens or creates a ledger database at the given path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to open %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(uploadsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, eris.Wrapf(err, "Failed to prepare %s", path)
	}

	return &Ledger{db: db}, nil
}

// Records are keyed by index and digest; the same artifact uploaded to two
// indexes yields two records.
func recordKey(index, digest string) []byte {
	return []byte(index + "#" + digest)
}

// Record stores rec, replacing any previous record for the same index and
// digest.
func (l *Ledger) Record(rec UploadRecord) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "Failed to encode upload record")
	}

	err = l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(uploadsBucket).Put(recordKey(rec.Index, rec.Digest), encoded)
	})
	if err != nil {
		return eris.Wrap(err, "Failed to store upload record")
	}

	return nil
}

// Find returns the record for the given index and digest or nil if the
// artifact hasn't been uploaded there yet.
func (l *Ledger) Find(index, digest string) (*UploadRecord, error) {
	var rec *UploadRecord

	err := l.db.View(func(tx *bolt.Tx) error {
		item := tx.Bucket(uploadsBucket).Get(recordKey(index, digest))
		if item == nil {
			return nil
		}

		rec = new(UploadRecord)
		return json.Unmarshal(item, rec)
	})
	if err != nil {
		return nil, eris.Wrap(err, "Failed to decode upload record")
	}

	return rec, nil
}

// Close releases the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
