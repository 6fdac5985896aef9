package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Operation is a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file was deleted.
	OpDelete
	// OpRename indicates a file was renamed away from Path.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to one file.
type FileEvent struct {
	// Path is relative to the watched root.
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Options configures the watcher.
type Options struct {
	// DebounceWindow is the quiet period before coalesced events are emitted.
	// Default: 200ms
	DebounceWindow time.Duration

	// PollInterval is the scan interval of the polling fallback.
	// Default: 2s
	PollInterval time.Duration

	// EventBufferSize is the capacity of the batch channel. Default: 100
	EventBufferSize int

	// Extensions limits events to files with these extensions.
	// Default: .json, .jsonl
	Extensions []string

	// SkipDirs are absolute directories never descended into, such as the
	// index directory when it lives under the watched root.
	SkipDirs []string

	// ForcePolling disables fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    2 * time.Second,
		EventBufferSize: 100,
		Extensions:      []string{".json", ".jsonl"},
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if len(o.Extensions) == 0 {
		o.Extensions = defaults.Extensions
	}
	return o
}

// matchFile reports whether name has one of the configured extensions.
func (o Options) matchFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range o.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// skipDir reports whether the directory at abs must not be watched.
// Hidden directories are always skipped.
func (o Options) skipDir(root, abs string) bool {
	if abs == root {
		return false
	}
	if strings.HasPrefix(filepath.Base(abs), ".") {
		return true
	}
	for _, d := range o.SkipDirs {
		if abs == filepath.Clean(d) {
			return true
		}
	}
	return false
}
