package session

import (
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

const sessionsBucket = "sessions"

// BoltProvider persists sessions in a BoltDB file, one nested bucket per session
type BoltProvider struct {
	db *bbolt.DB
}

// NewBoltProvider opens (or creates) the sessions database at path
func NewBoltProvider(path string) (*BoltProvider, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening sessions db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions bucket: %w", err)
	}
	return &BoltProvider{db: db}, nil
}

func (p *BoltProvider) For(id string) Store {
	return &boltStore{db: p.db, id: []byte(id)}
}

// Close closes the sessions database
func (p *BoltProvider) Close() error {
	return p.db.Close()
}

type boltStore struct {
	db *bbolt.DB
	id []byte
}

func (s *boltStore) Get(key string) (string, bool) {
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(sessionsBucket)).Bucket(s.id)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	if err != nil {
		slog.Error("Error reading session", "key", key, "error", err)
		return "", false
	}
	return value, found
}

func (s *boltStore) Set(key, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket([]byte(sessionsBucket)).CreateBucketIfNotExists(s.id)
		if err != nil {
			return fmt.Errorf("creating session bucket: %w", err)
		}
		return b.Put([]byte(key), []byte(value))
	})
}

func (s *boltStore) Remove(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(sessionsBucket)).Bucket(s.id)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}
