package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/nhoad/steamnews/internal/domain"
)

const (
	gamesBucket   = "games"
	ignoredBucket = "ignored"
)

// boltStore implements Store backed by BoltDB.
type boltStore struct {
	db *bolt.DB
}

// Open initializes a BoltDB-backed Store at the given path.
func Open(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{gamesBucket, ignoredBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// DiffUnknown filters out every entry already present in the games table or
// the ignore set.
func (b *boltStore) DiffUnknown(entries []domain.CatalogEntry) ([]domain.CatalogEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	var unknown []domain.CatalogEntry
	err := b.db.View(func(tx *bolt.Tx) error {
		games := tx.Bucket([]byte(gamesBucket))
		ignored := tx.Bucket([]byte(ignoredBucket))
		if games == nil || ignored == nil {
			return fmt.Errorf("store buckets missing")
		}

		for _, e := range entries {
			key := idKey(e.AppID)
			if games.Get(key) != nil || ignored.Get(key) != nil {
				continue
			}
			unknown = append(unknown, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unknown, nil
}

// CommitGames inserts the resolved games in a single transaction.
func (b *boltStore) CommitGames(games []domain.Game) error {
	if len(games) == 0 {
		return nil
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(gamesBucket))
		if bucket == nil {
			return fmt.Errorf("games bucket missing")
		}
		for _, g := range games {
			g.NewsItems = nil // transient, never persisted
			value, err := json.Marshal(g)
			if err != nil {
				return fmt.Errorf("marshal game %d: %w", g.AppID, err)
			}
			if err := bucket.Put(idKey(g.AppID), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Ignore adds the ids to the ignore set in a single transaction.
func (b *boltStore) Ignore(ids []int) error {
	if len(ids) == 0 {
		return nil
	}

	marker := []byte(strconv.FormatInt(time.Now().Unix(), 10))
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(ignoredBucket))
		if bucket == nil {
			return fmt.Errorf("ignored bucket missing")
		}
		for _, id := range ids {
			if err := bucket.Put(idKey(id), marker); err != nil {
				return err
			}
		}
		return nil
	})
}

// GamesByKind returns every stored game of the given kind.
func (b *boltStore) GamesByKind(kind string) ([]domain.Game, error) {
	var games []domain.Game
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(gamesBucket))
		if bucket == nil {
			return fmt.Errorf("games bucket missing")
		}
		return bucket.ForEach(func(k, v []byte) error {
			var g domain.Game
			if err := json.Unmarshal(v, &g); err != nil {
				return fmt.Errorf("unmarshal game %s: %w", k, err)
			}
			if g.Kind == kind {
				games = append(games, g)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return games, nil
}

// SetLastPublished updates the publication timestamp of a stored game.
func (b *boltStore) SetLastPublished(id int, at time.Time) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(gamesBucket))
		if bucket == nil {
			return fmt.Errorf("games bucket missing")
		}
		key := idKey(id)
		value := bucket.Get(key)
		if value == nil {
			return fmt.Errorf("game %d not in store", id)
		}
		var g domain.Game
		if err := json.Unmarshal(value, &g); err != nil {
			return fmt.Errorf("unmarshal game %d: %w", id, err)
		}
		g.LastPublishedAt = at.UTC()
		updated, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("marshal game %d: %w", id, err)
		}
		return bucket.Put(key, updated)
	})
}

// idKey renders an app id as its decimal bucket key.
func idKey(id int) []byte { return []byte(strconv.Itoa(id)) }
