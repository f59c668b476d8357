package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketSessions = []byte("sessions")
	bucketLatest   = []byte("latest")
)

// BoltStore keeps every saved session of a name in a BoltDB file
type BoltStore struct {
	db   *bolt.DB
	name string
}

// OpenBolt opens or creates the database at path. name selects which
// session Load returns.
func OpenBolt(path, name string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSessions, bucketLatest} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, name: name}, nil
}

// Save stores doc as a new record and makes it the latest for the name
func (s *BoltStore) Save(doc Document) error {
	rec := Record{
		ID:       uuid.NewString(),
		Name:     s.name,
		SavedAt:  time.Now().UTC(),
		Document: doc,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("error marshaling session: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketSessions).Put([]byte(rec.ID), data); err != nil {
			return err
		}
		return tx.Bucket(bucketLatest).Put([]byte(s.name), []byte(rec.ID))
	})
}

// Load returns the latest session saved under the store's name
func (s *BoltStore) Load() (Document, error) {
	rec, err := s.latest()
	if err != nil {
		return Document{}, err
	}
	return rec.Document, nil
}

func (s *BoltStore) latest() (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketLatest).Get([]byte(s.name))
		if id == nil {
			return ErrNoSession
		}
		data := tx.Bucket(bucketSessions).Get(id)
		if data == nil {
			return fmt.Errorf("session %s is missing", id)
		}
		return json.Unmarshal(data, &rec)
	})
	return rec, err
}

// History returns every record saved under the store's name, oldest first
func (s *BoltStore) History() ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEach(func(_, data []byte) error {
			var rec Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
			if rec.Name == s.name {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortRecords(out)
	return out, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}
