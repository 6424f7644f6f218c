package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/quantmind-br/jsonbundler/internal/domain"
	"github.com/quantmind-br/jsonbundler/internal/utils"
)

// Ensure Store implements domain.BuildStore
var _ domain.BuildStore = (*Store)(nil)

const (
	buildPrefix = "build\x00"
	lastPrefix  = "last\x00"
	gcInterval  = 5 * time.Minute
)

// Store keeps build history in BadgerDB
type Store struct {
	db       *badger.DB
	logger   *utils.Logger
	disabled bool
	stop     chan struct{}
	once     sync.Once
}

// Open opens the store. While another process holds the directory lock the
// open is retried with exponential backoff.
func Open(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	logger = logger.WithComponent("state")

	if opts.Disabled {
		return &Store{disabled: true, logger: logger}, nil
	}

	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := utils.ExpandPath(opts.Directory)
		if dir == "" {
			dir = DefaultDirectory
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		badgerOpts = badger.DefaultOptions(dir)
	}
	badgerOpts = badgerOpts.WithLogger(&badgerLogger{logger: logger})

	db, err := openWithRetry(ctx, badgerOpts, opts, logger)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, logger: logger, stop: make(chan struct{})}
	if !opts.InMemory {
		go s.collectGarbage()
	}
	return s, nil
}

func openWithRetry(ctx context.Context, badgerOpts badger.Options, opts Options, logger *utils.Logger) (*badger.DB, error) {
	retries := opts.OpenRetries
	if retries < 0 {
		retries = 0
	}
	interval := opts.RetryInterval
	if interval <= 0 {
		interval = DefaultOptions().RetryInterval
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = 10 * interval
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5
	b.Reset()

	var db *badger.DB
	err := backoff.Retry(func() error {
		var err error
		db, err = badger.Open(badgerOpts)
		if err == nil {
			return nil
		}
		if isLockError(err) {
			logger.Debug().Err(err).Msg("Build store locked, retrying")
			return fmt.Errorf("%w: %v", ErrStoreLocked, err)
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx))

	if err != nil {
		return nil, err
	}
	return db, nil
}

func isLockError(err error) bool {
	return strings.Contains(err.Error(), "directory lock")
}

func (s *Store) collectGarbage() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			_ = s.db.RunValueLogGC(0.5)
		}
	}
}

func buildKey(env string, at time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s\x00%020d", buildPrefix, env, at.UnixNano()))
}

func lastKey(env string) []byte {
	return []byte(lastPrefix + env)
}

// Record stores rec and makes it the latest build of its environment. An
// empty ID is filled with a new UUID.
func (s *Store) Record(ctx context.Context, rec *domain.BuildRecord) error {
	if s.disabled || rec == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(buildKey(rec.Environment, rec.StartedAt), data); err != nil {
			return err
		}
		return txn.Set(lastKey(rec.Environment), data)
	})
}

// Last returns the latest build of env, domain.ErrNoBuild when none exists
func (s *Store) Last(ctx context.Context, env string) (*domain.BuildRecord, error) {
	if s.disabled {
		return nil, domain.ErrNoBuild
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *domain.BuildRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lastKey(env))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrNoBuild
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = decodeRecord(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// History returns up to limit builds of env, newest first. A limit of zero
// or less returns every build.
func (s *Store) History(ctx context.Context, env string, limit int) ([]*domain.BuildRecord, error) {
	if s.disabled {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(buildPrefix + env + "\x00")
	var out []*domain.BuildRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(bytes.Clone(prefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				rec, err := decodeRecord(val)
				if err != nil {
					return err
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Close releases store resources
func (s *Store) Close() error {
	if s.disabled {
		return nil
	}
	var err error
	s.once.Do(func() {
		close(s.stop)
		err = s.db.Close()
	})
	return err
}

// IsDisabled reports whether the store is a no-op
func (s *Store) IsDisabled() bool {
	return s.disabled
}

func decodeRecord(val []byte) (*domain.BuildRecord, error) {
	var rec domain.BuildRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordCorrupted, err)
	}
	return &rec, nil
}

// badgerLogger routes badger's internal logging to zerolog; info becomes debug
type badgerLogger struct {
	logger *utils.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}
