package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketSessions = []byte("sessions")

// BoltPersister keeps one token per API base URL in a bbolt file.
type BoltPersister struct {
	db  *bolt.DB
	key []byte
}

// OpenBolt opens (creating if needed) the session database at path and
// scopes the stored token to baseURL.
func OpenBolt(path, baseURL string) (*BoltPersister, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltPersister{db: db, key: []byte(hashBaseURL(baseURL))}, nil
}

func hashBaseURL(baseURL string) string {
	normalized := strings.TrimRight(strings.ToLower(baseURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Load returns the saved token or "".
func (p *BoltPersister) Load() (string, error) {
	var token string
	err := p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b == nil {
			return nil
		}
		if v := b.Get(p.key); v != nil {
			token = string(v)
		}
		return nil
	})
	return token, err
}

// Save stores token.
func (p *BoltPersister) Save(token string) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Put(p.key, []byte(token))
	})
}

// Clear deletes the stored token.
func (p *BoltPersister) Clear() error {
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete(p.key)
	})
}

// Close releases the database file.
func (p *BoltPersister) Close() error {
	return p.db.Close()
}
