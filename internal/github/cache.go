package github

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var usersBucket = []byte("github_users")

// UserCache is a local bbolt store of user-endpoint responses, so repeated
// discovery cycles do not burn API budget refetching the same users. A
// stale or unavailable cache degrades to a miss, never an error.
type UserCache struct {
	db  *bolt.DB
	ttl time.Duration
}

// OpenUserCache opens (or creates) the cache file.
func OpenUserCache(path string, ttl time.Duration) (*UserCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open user cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(usersBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init user cache: %w", err)
	}
	return &UserCache{db: db, ttl: ttl}, nil
}

// Close closes the underlying file.
func (uc *UserCache) Close() error {
	return uc.db.Close()
}

// Get returns a cached user if present and fresh.
func (uc *UserCache) Get(username string) (*User, bool) {
	var user User
	found := false
	err := uc.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(usersBucket).Get(key(username))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil
		}
		if time.Since(user.FetchedAt) < uc.ttl {
			found = true
		}
		return nil
	})
	if err != nil || !found {
		return nil, false
	}
	return &user, true
}

// Put stores a user response. Failures are swallowed; the cache is an
// optimization, not a store of record.
func (uc *UserCache) Put(u *User) {
	raw, err := json.Marshal(u)
	if err != nil {
		return
	}
	_ = uc.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(usersBucket).Put(key(u.Login), raw)
	})
}

func key(username string) []byte {
	return []byte(strings.ToLower(username))
}
