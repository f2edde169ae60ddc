package themes

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
)

const themeBucket = "themes"

// BoltSource stores themes in a BoltDB bucket keyed by big-endian theme id,
// so iteration yields ascending id order.
type BoltSource struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the theme database at path.
func OpenBolt(path string) (*BoltSource, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create themes directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(themeBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}
	return &BoltSource{db: db}, nil
}

// Close closes the database.
func (b *BoltSource) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// All returns every stored theme in ascending id order.
func (b *BoltSource) All(ctx context.Context) ([]domain.Theme, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.Theme
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(themeBucket))
		if bucket == nil {
			return fmt.Errorf("theme bucket missing")
		}
		return bucket.ForEach(func(k, v []byte) error {
			id, ok := decodeID(k)
			if !ok {
				return fmt.Errorf("malformed theme key %x", k)
			}
			var keywords []string
			if err := json.Unmarshal(v, &keywords); err != nil {
				return fmt.Errorf("decode theme %d: %w", id, err)
			}
			out = append(out, domain.Theme{ID: id, Keywords: keywords})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exists looks the id up directly.
func (b *BoltSource) Exists(ctx context.Context, id int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(themeBucket))
		if bucket == nil {
			return fmt.Errorf("theme bucket missing")
		}
		found = bucket.Get(encodeID(id)) != nil
		return nil
	})
	return found, err
}

// Put inserts or replaces a theme.
func (b *BoltSource) Put(theme domain.Theme) error {
	return b.Replace([]domain.Theme{theme}, false)
}

// Replace writes themes in one transaction. When clear is set, themes not in
// the list are removed.
func (b *BoltSource) Replace(list []domain.Theme, clear bool) error {
	list = append([]domain.Theme(nil), list...)
	if err := validate(list); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		if clear {
			if err := tx.DeleteBucket([]byte(themeBucket)); err != nil {
				return fmt.Errorf("clear themes: %w", err)
			}
		}
		bucket, err := tx.CreateBucketIfNotExists([]byte(themeBucket))
		if err != nil {
			return err
		}
		for _, t := range list {
			if t.ID < 0 {
				return fmt.Errorf("theme id %d must not be negative", t.ID)
			}
			raw, err := json.Marshal(t.Keywords)
			if err != nil {
				return fmt.Errorf("encode theme %d: %w", t.ID, err)
			}
			if err := bucket.Put(encodeID(t.ID), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func encodeID(id int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func decodeID(key []byte) (int, bool) {
	if len(key) != 8 {
		return 0, false
	}
	return int(binary.BigEndian.Uint64(key)), true
}
