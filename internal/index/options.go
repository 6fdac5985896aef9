package index

import (
	"log/slog"
	"time"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
)

const (
	// DefaultWriteBufferBytes is the byte budget of uncommitted batch data.
	DefaultWriteBufferBytes = 50 * 1024 * 1024

	// MaxResults is the upper bound on results returned by one search.
	MaxResults = 50

	// DefaultQueryCacheSize is the number of parsed queries kept in memory.
	DefaultQueryCacheSize = 256

	// DefaultLockTimeout bounds the wait for the on-disk index lock.
	DefaultLockTimeout = time.Second
)

// Options configures Open.
type Options struct {
	// Path is the index directory. Empty creates an in-memory index.
	Path string

	// WriteBufferBytes bounds the data a Batch buffers before it commits
	// on its own. Default: 50 MiB.
	WriteBufferBytes int

	// MaxResults caps the number of results per search (1-50). Default: 50.
	MaxResults int

	// QueryCacheSize is the parsed query LRU capacity. Default: 256.
	QueryCacheSize int

	// Logger receives index events. Default: slog.Default().
	Logger *slog.Logger

	// Observer receives commit and search measurements. Optional.
	Observer Observer

	// ReadOnly opens an existing on-disk index for searching only. Any
	// number of read-only handles, in any process, may share a directory,
	// but none while a read-write handle has it open. The handle serves the
	// documents committed when it was opened and cannot attach a Writer.
	ReadOnly bool

	// LockTimeout is how long Open waits for another process to release
	// the index directory before failing with ErrCodeWriterBusy.
	// Default: 1s.
	LockTimeout time.Duration
}

// Observer is notified after every commit and search.
type Observer interface {
	ObserveCommit(op string, mutations int, d time.Duration, err error)
	ObserveSearch(d time.Duration, hits int, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveCommit(string, int, time.Duration, error) {}
func (nopObserver) ObserveSearch(time.Duration, int, error)         {}

func (o Options) withDefaults() Options {
	if o.WriteBufferBytes == 0 {
		o.WriteBufferBytes = DefaultWriteBufferBytes
	}
	if o.MaxResults == 0 {
		o.MaxResults = MaxResults
	}
	if o.QueryCacheSize == 0 {
		o.QueryCacheSize = DefaultQueryCacheSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.LockTimeout == 0 {
		o.LockTimeout = DefaultLockTimeout
	}
	return o
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.WriteBufferBytes < 0 {
		return sderrors.ConfigError("write buffer budget must be positive", nil)
	}
	if o.MaxResults < 1 || o.MaxResults > MaxResults {
		return sderrors.ConfigError("max results must be between 1 and 50", nil)
	}
	if o.QueryCacheSize < 0 {
		return sderrors.ConfigError("query cache size must not be negative", nil)
	}
	if o.LockTimeout < 0 {
		return sderrors.ConfigError("lock timeout must not be negative", nil)
	}
	return nil
}
