// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog persists ingestion results keyed by strong digest.
//
// The catalog is the single-winner side of ingestion bookkeeping:
// placement itself is safe under concurrent duplicate ingestion, but
// "was this content new" needs one authoritative answer, and the
// catalog provides it through a unique key inside one write
// transaction. Records are CBOR-encoded in a single bbolt bucket.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/hoardkeep/hoard/lib/metadata"
)

var recordBucket = []byte("records")

// ErrNotFound reports a digest with no catalog record.
var ErrNotFound = errors.New("record not found")

// Record is one content entry. The strong digest is the key; the rest
// is what downstream consumers need to serve or re-derive the file
// without touching its bytes.
type Record struct {
	StrongDigest string            `json:"strong_digest"`
	FastDigest   string            `json:"fast_digest"`
	MimeType     string            `json:"mime_type"`
	Size         int64             `json:"size"`
	Metadata     metadata.Metadata `json:"metadata"`
	Corrupt      metadata.Corrupt  `json:"corrupt"`
	FirstSeen    time.Time         `json:"first_seen"`
	Sightings    []Sighting        `json:"sightings,omitempty"`
}

// Sighting records one source path the content arrived from.
type Sighting struct {
	Path string    `json:"path"`
	Seen time.Time `json:"seen"`
}

// Catalog is a bbolt-backed record store. Safe for concurrent use;
// bbolt serializes write transactions.
type Catalog struct {
	db  *bolt.DB
	now func() time.Time
}

// Open creates or opens the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing catalog %s: %w", path, err)
	}
	return &Catalog{db: db, now: time.Now}, nil
}

// Close releases the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// GetOrCreate records the content under its strong digest. Inside one
// write transaction: an absent key creates the record and reports
// created=true; a present key only appends a sighting for sourcePath,
// leaving the stored metadata untouched. Concurrent callers ingesting
// the same bytes therefore get exactly one created=true.
func (c *Catalog) GetOrCreate(record Record, sourcePath string) (Record, bool, error) {
	var stored Record
	var created bool
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(recordBucket)
		key := []byte(record.StrongDigest)
		now := c.now()

		if existing := bucket.Get(key); existing != nil {
			if err := cbor.Unmarshal(existing, &stored); err != nil {
				return fmt.Errorf("decoding record %s: %w", record.StrongDigest, err)
			}
			stored.Sightings = append(stored.Sightings, Sighting{Path: sourcePath, Seen: now})
			encoded, err := cbor.Marshal(stored)
			if err != nil {
				return fmt.Errorf("encoding record %s: %w", record.StrongDigest, err)
			}
			return bucket.Put(key, encoded)
		}

		record.FirstSeen = now
		record.Sightings = []Sighting{{Path: sourcePath, Seen: now}}
		encoded, err := cbor.Marshal(record)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", record.StrongDigest, err)
		}
		if err := bucket.Put(key, encoded); err != nil {
			return err
		}
		stored = record
		created = true
		return nil
	})
	if err != nil {
		return Record{}, false, err
	}
	return stored, created, nil
}

// Get looks up a record by strong digest text.
func (c *Catalog) Get(strongDigest string) (Record, error) {
	var record Record
	err := c.db.View(func(tx *bolt.Tx) error {
		encoded := tx.Bucket(recordBucket).Get([]byte(strongDigest))
		if encoded == nil {
			return fmt.Errorf("%s: %w", strongDigest, ErrNotFound)
		}
		return cbor.Unmarshal(encoded, &record)
	})
	if err != nil {
		return Record{}, err
	}
	return record, nil
}

// Count returns the number of stored records.
func (c *Catalog) Count() (int, error) {
	var count int
	err := c.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(recordBucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Each calls fn for every record in key order. Returning an error
// from fn stops the walk.
func (c *Catalog) Each(fn func(Record) error) error {
	return c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordBucket).ForEach(func(_, encoded []byte) error {
			var record Record
			if err := cbor.Unmarshal(encoded, &record); err != nil {
				return fmt.Errorf("decoding record: %w", err)
			}
			return fn(record)
		})
	})
}
