package session

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var ErrNoSession = errors.New("session: no stored session")

// Store persists a token pair across process restarts.
type Store interface {
	Load() (Tokens, error)
	Save(Tokens) error
	Clear() error
	Close() error
}

var (
	bucketName = []byte("session")
	accessKey  = []byte("access_token")
	refreshKey = []byte("refresh_token")
)

// BoltStore keeps the token pair in a single-bucket bolt file so the CLI
// and other long-lived consumers survive restarts without re-login.
type BoltStore struct {
	db *bolt.DB
}

func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load() (Tokens, error) {
	var tokens Tokens
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		access := b.Get(accessKey)
		refresh := b.Get(refreshKey)
		if access == nil && refresh == nil {
			return ErrNoSession
		}
		tokens.Access = string(access)
		tokens.Refresh = string(refresh)
		return nil
	})
	return tokens, err
}

func (s *BoltStore) Save(tokens Tokens) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Put(accessKey, []byte(tokens.Access)); err != nil {
			return err
		}
		return b.Put(refreshKey, []byte(tokens.Refresh))
	})
}

func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Delete(accessKey); err != nil {
			return err
		}
		return b.Delete(refreshKey)
	})
}

func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// MemoryStore holds tokens for the lifetime of the process only.
type MemoryStore struct {
	tokens Tokens
	loaded bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Tokens, error) {
	if !s.loaded {
		return Tokens{}, ErrNoSession
	}
	return s.tokens, nil
}

func (s *MemoryStore) Save(tokens Tokens) error {
	s.tokens = tokens
	s.loaded = true
	return nil
}

func (s *MemoryStore) Clear() error {
	s.tokens = Tokens{}
	s.loaded = false
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
