package bill

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "bills"

// ErrNotFound is returned when no record exists for an ID
var ErrNotFound = errors.New("bill not found")

// DB defines the interface for database operations
type DB interface {
	// SaveBill saves a record to the database
	SaveBill(record *Record) error

	// GetBill retrieves a record by ID
	GetBill(id string) (*Record, error)

	// ListBills returns all records, newest first
	ListBills() ([]*Record, error)

	// DeleteBill removes a record from the database
	DeleteBill(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveBill saves a record, replacing any record with the same ID
func (b *BoltDB) SaveBill(record *Record) error {
	if record.ID == "" {
		return errors.New("bill id is required")
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(storedRecord{Record: *record, Text: record.Text})
		if err != nil {
			return fmt.Errorf("marshaling bill: %w", err)
		}
		return tx.Bucket([]byte(bucketName)).Put([]byte(record.ID), data)
	})
}

// GetBill retrieves a record by ID
func (b *BoltDB) GetBill(id string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		r, err := decodeRecord(data)
		if err != nil {
			return err
		}
		record = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListBills returns all records, newest first
func (b *BoltDB) ListBills() ([]*Record, error) {
	records := make([]*Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			r, err := decodeRecord(v)
			if err != nil {
				return err
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// DeleteBill removes a record. Deleting a missing record returns ErrNotFound.
func (b *BoltDB) DeleteBill(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

func decodeRecord(data []byte) (*Record, error) {
	var s storedRecord
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshaling bill: %w", err)
	}
	s.Record.Text = s.Text
	return &s.Record, nil
}
