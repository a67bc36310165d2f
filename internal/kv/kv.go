package kv

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v2"
)

// sequenceBandwidth is how many ids a sequence leases per round trip.
const sequenceBandwidth = 256

// DB is a Badger-backed quad store. It is safe for concurrent use;
// inserts are serialized.
type DB struct {
	db     *badger.DB
	ids    *badger.Sequence
	seqs   *badger.Sequence
	logger *slog.Logger

	mu sync.Mutex
}

// Option configures a DB.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger routes Badger's internal logging to logger. Badger's info
// messages are logged at debug level. Without it Badger is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Open creates or opens a database in the directory at path.
func Open(path string, opts ...Option) (*DB, error) {
	return open(badger.DefaultOptions(path), opts)
}

// OpenInMemory creates a database that lives only as long as the DB.
func OpenInMemory(opts ...Option) (*DB, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), opts)
}

func open(bopts badger.Options, opts []Option) (*DB, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger != nil {
		bopts = bopts.WithLogger(badgerLogger{cfg.logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	ids, err := db.GetSequence(idSequenceKey, sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open id sequence: %w", err)
	}
	seqs, err := db.GetSequence(seqSequenceKey, sequenceBandwidth)
	if err != nil {
		ids.Release()
		db.Close()
		return nil, fmt.Errorf("failed to open quad sequence: %w", err)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DB{db: db, ids: ids, seqs: seqs, logger: logger}, nil
}

// Close releases the sequences and closes the database.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	var errs []string
	for _, seq := range []*badger.Sequence{d.ids, d.seqs} {
		if err := seq.Release(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := d.db.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("close database: %s", strings.Join(errs, "; "))
	}
	return nil
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}
