package deadletter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pulsefeed/backend/domain"
)

const bucketName = "dead_letters"

// Entry is a parked event together with why it was parked.
type Entry struct {
	Event    domain.Event `json:"event"`
	Reason   string       `json:"reason"`
	Attempts int          `json:"attempts"`
	ParkedAt time.Time    `json:"parked_at"`
}

// Store is a bbolt-backed park for events the processor gave up on, kept for
// operator inspection instead of cluttering the pending queue forever.
type Store struct {
	db *bolt.DB
}

// Open initializes the bolt file and ensures the bucket exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Park stores an entry keyed by parked-at time and event id.
func (s *Store) Park(entry Entry) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if entry.ParkedAt.IsZero() {
		entry.ParkedAt = time.Now()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%020d_%d", entry.ParkedAt.UnixNano(), entry.Event.ID)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), payload)
	})
}

// List returns up to limit parked entries, oldest first.
func (s *Store) List(limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketName)).Cursor()
		for k, v := c.First(); k != nil && len(entries) < limit; k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Size returns the number of parked entries.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
