package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"time":"2026-10-14T09:00:00.000Z","level":"DEBUG","msg":"index_opened","path":"/tmp/idx"}
{"time":"2026-10-14T09:00:01.000Z","level":"INFO","msg":"search","query":"天安门","hits":1}
not json
{"time":"2026-10-14T09:00:02.000Z","level":"ERROR","msg":"commit_failed","op":"add"}
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segdex.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseEntry(t *testing.T) {
	e := ParseEntry(`{"time":"2026-10-14T09:00:01.5Z","level":"INFO","msg":"search","hits":3}`)

	require.True(t, e.Valid)
	assert.Equal(t, "INFO", e.Level)
	assert.Equal(t, "search", e.Msg)
	assert.Equal(t, map[string]any{"hits": float64(3)}, e.Attrs)
	assert.Equal(t, 500*time.Millisecond, time.Duration(e.Time.Nanosecond()))

	raw := ParseEntry("plain text")
	assert.False(t, raw.Valid)
	assert.Equal(t, "plain text", raw.Raw)
}

func TestViewer_Tail(t *testing.T) {
	path := writeLog(t, sampleLog)

	tests := []struct {
		name string
		cfg  ViewerConfig
		n    int
		want []string
	}{
		{name: "all lines", n: 50, want: []string{"index_opened", "search", "not json", "commit_failed"}},
		{name: "last two", n: 2, want: []string{"not json", "commit_failed"}},
		{name: "level filter keeps raw lines", cfg: ViewerConfig{Level: "info"}, n: 50, want: []string{"search", "not json", "commit_failed"}},
		{name: "pattern", cfg: ViewerConfig{Pattern: regexp.MustCompile(`"op":"add"`)}, n: 50, want: []string{"commit_failed"}},
		{name: "zero lines", n: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.NoColor = true
			entries, err := NewViewer(tt.cfg, &bytes.Buffer{}).Tail(path, tt.n)
			require.NoError(t, err)

			var got []string
			for _, e := range entries {
				if e.Valid {
					got = append(got, e.Msg)
				} else {
					got = append(got, e.Raw)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestViewer_TailMissingFile(t *testing.T) {
	_, err := NewViewer(ViewerConfig{}, &bytes.Buffer{}).Tail(filepath.Join(t.TempDir(), "absent.log"), 10)
	require.Error(t, err)
}

func TestViewer_Print(t *testing.T) {
	// Given: a plain viewer
	var buf bytes.Buffer
	v := NewViewer(ViewerConfig{NoColor: true}, &buf)

	// When: printing an entry with attributes and a raw line
	v.Print([]Entry{
		ParseEntry(`{"time":"2026-10-14T09:00:01.250Z","level":"WARN","msg":"slow_commit","op":"add","ms":120}`),
		ParseEntry("raw line"),
	})

	// Then: the time, padded level, message and sorted attributes are printed
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "09:00:01.250 WARN  slow_commit ms=120 op=add", lines[0])
	assert.Equal(t, "raw line", lines[1])
}

func TestViewer_Follow(t *testing.T) {
	// Given: an existing log
	path := writeLog(t, sampleLog)
	v := NewViewer(ViewerConfig{NoColor: true, Level: "warn"}, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	entries := make(chan Entry, 10)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()

	// When: lines are appended after following starts
	time.Sleep(2 * followInterval)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"time":"2026-10-14T09:00:03Z","level":"INFO","msg":"ignored"}` + "\n" +
		`{"time":"2026-10-14T09:00:04Z","level":"WARN","msg":"writer_busy"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Then: only new lines that pass the filter are sent
	select {
	case e := <-entries:
		assert.Equal(t, "writer_busy", e.Msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no entry received")
	}

	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, entries)
}
