// Package journal implements the append-only audit/journal sink on a
// key-ordered bbolt store. Keys sort by timestamp so one day's entries form
// one contiguous key range.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	domain "github.com/execdesk/execdesk/internal/domain/journal"
)

// Store is a bbolt-backed journal sink, one bucket per record kind.
type Store struct {
	db      *bolt.DB
	signKey []byte
	logger  zerolog.Logger
}

// Open opens (or creates) the journal database for one org. When signKey is
// non-empty every entry is HMAC-signed before it is written.
func Open(dir, org string, signKey []byte, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	path := filepath.Join(dir, org+"_journal.db")
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, kind := range domain.Kinds {
			if _, err := tx.CreateBucketIfNotExists([]byte(kind)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal buckets: %w", err)
	}
	return &Store{
		db:      db,
		signKey: signKey,
		logger:  logger.With().Str("store", "journal").Str("org", org).Logger(),
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Append writes one entry. Keys are RFC3339Nano timestamp plus entry id so
// the bucket stays ordered and write-once.
func (s *Store) Append(_ context.Context, kind domain.Kind, e domain.Entry) error {
	if len(s.signKey) > 0 {
		sig, err := domain.Sign(kind, &e, s.signKey)
		if err != nil {
			return fmt.Errorf("sign journal entry: %w", err)
		}
		e.Signature = sig
	}
	key := []byte(e.At.UTC().Format(time.RFC3339Nano) + "|" + e.ID.String())
	val, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("journal bucket missing: %s", kind)
		}
		if b.Get(key) != nil {
			return fmt.Errorf("journal key already written: %s", key)
		}
		return b.Put(key, val)
	})
}

// Summary aggregates one UTC day of journal activity. Only counts (and
// generation units) are read back; entries are never re-parsed into domain
// objects.
func (s *Store) Summary(_ context.Context, date time.Time) (domain.DaySummary, error) {
	prefix := []byte(date.UTC().Format("2006-01-02"))
	sum := domain.DaySummary{Date: string(prefix)}

	err := s.db.View(func(tx *bolt.Tx) error {
		count := func(kind domain.Kind, units bool) (int, int) {
			b := tx.Bucket([]byte(kind))
			if b == nil {
				return 0, 0
			}
			n, total := 0, 0
			c := b.Cursor()
			for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
				n++
				if units {
					var e domain.Entry
					if err := json.Unmarshal(v, &e); err == nil {
						total += e.Units
					}
				}
			}
			return n, total
		}

		sum.Decisions, _ = count(domain.KindDecision, false)
		sum.Events, _ = count(domain.KindEvent, false)
		sum.Executions, _ = count(domain.KindExecution, false)
		sum.MetricUpdates, _ = count(domain.KindMetric, false)
		sum.Reflections, _ = count(domain.KindReflection, false)
		sum.GenerationCalls, sum.GenerationUnits = count(domain.KindGeneration, true)
		return nil
	})
	return sum, err
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
