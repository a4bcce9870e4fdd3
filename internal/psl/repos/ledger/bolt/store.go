package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/psl-updater/internal/psl/domain"
)

var (
	bucketRuns = []byte("runs")
	bucketMeta = []byte("meta")

	keyDigest = []byte("digest")
)

// Store is a run ledger backed by bbolt.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRuns); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init ledger %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record appends run and updates the last digest.
func (s *Store) Record(run domain.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	val, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketRuns).Put(runKey(run), val); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyDigest, []byte(run.Digest))
	})
}

// Last returns the most recently finished run, if any.
func (s *Store) Last() (domain.Run, bool, error) {
	var (
		run   domain.Run
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		if b == nil {
			return nil
		}
		k, v := b.Cursor().Last()
		if k == nil {
			return nil
		}
		if err := json.Unmarshal(v, &run); err != nil {
			return fmt.Errorf("decode run %x: %w", k, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return domain.Run{}, false, err
	}
	return run, found, nil
}

// LastDigest returns the output digest of the latest recorded run, or ""
// when nothing has been recorded.
func (s *Store) LastDigest() (string, error) {
	var digest string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketMeta); b != nil {
			digest = string(b.Get(keyDigest))
		}
		return nil
	})
	return digest, err
}

// Count returns the number of recorded runs.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketRuns); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// runKey orders runs by finish time; the ID breaks ties.
func runKey(run domain.Run) []byte {
	key := make([]byte, 8, 8+len(run.ID))
	binary.BigEndian.PutUint64(key, uint64(run.FinishedAt.UnixNano()))
	return append(key, run.ID...)
}
