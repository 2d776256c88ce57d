package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Astrrra/arcmini/internal/engine"
	"github.com/Astrrra/arcmini/internal/models"
)

type stubTarget struct {
	mu         sync.Mutex
	revisions  []engine.Revision
	processing []bool
	current    []uuid.UUID
	sleeping   []bool
	err        error
	// failAt makes the failAt-th Apply call (1-based) return err.
	failAt     int
	applies    int
}

func (s *stubTarget) Apply(_ context.Context, rev engine.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applies++
	if s.err != nil && (s.failAt == 0 || s.failAt == s.applies) {
		return s.err
	}
	s.revisions = append(s.revisions, rev)
	return nil
}

func (s *stubTarget) SetProcessing(_ context.Context, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = append(s.processing, v)
}

func (s *stubTarget) SetCurrentItem(_ context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = append(s.current, id)
}

func (s *stubTarget) SetSleeping(_ context.Context, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeping = append(s.sleeping, v)
}

func (s *stubTarget) revisionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.revisions)
}

func itemLine(id uuid.UUID, kind string) string {
	return `{"op":"item","id":"` + id.String() + `","kind":"` + kind +
		`","start":"2026-03-01T09:00:00Z","end":"2026-03-01T10:00:00Z","worth_keeping":true,` +
		`"visit":{"center":{"lat":51.5,"lon":-0.12}}}`
}

func writeFeed(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func appendFeed(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantOp  Op
		wantErr bool
	}{
		{name: "item", line: itemLine(uuid.New(), "visit"), wantOp: OpItem},
		{name: "processing", line: `{"op":"processing","value":true}`, wantOp: OpProcessing},
		{name: "op is case insensitive", line: `{"op":" Recorder ","sleeping":true}`, wantOp: OpRecorder},
		{name: "current", line: `{"op":"current","id":""}`, wantOp: OpCurrent},
		{name: "unknown op", line: `{"op":"teleport"}`, wantErr: true},
		{name: "malformed", line: `{"op":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseRecord([]byte(tt.line))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantOp, rec.Op)
		})
	}
}

func TestRecordItem(t *testing.T) {
	id := uuid.New()
	rec, err := ParseRecord([]byte(itemLine(id, "Visit")))
	require.NoError(t, err)

	item, err := rec.Item()
	require.NoError(t, err)
	require.Equal(t, id, item.ID)
	require.Equal(t, models.ItemKindVisit, item.Kind)
	require.True(t, item.WorthKeeping)
	require.Equal(t, time.Hour, item.DateRange.Duration())
	require.InDelta(t, 51.5, item.Visit.Center.Latitude, 1e-9)

	rec, err = ParseRecord([]byte(itemLine(id, "boat")))
	require.NoError(t, err)
	_, err = rec.Item()
	require.ErrorIs(t, err, models.ErrUnknownKind)
}

func TestSyncAppliesRecordsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	a, b, current := uuid.New(), uuid.New(), uuid.New()
	writeFeed(t, path,
		itemLine(a, "visit"),
		itemLine(b, "visit"),
		`{"op":"processing","value":true}`,
		`not json`,
		itemLine(uuid.New(), "hovercraft"),
		`{"op":"recorder","sleeping":true}`,
		`{"op":"current","id":"`+current.String()+`"}`,
		`{"op":"current","id":"nope"}`,
		"",
	)

	target := &stubTarget{}
	f := New(path, target, target)
	stats, err := f.Sync(context.Background())

	require.NoError(t, err)
	require.Equal(t, Stats{Lines: 8, Items: 2, Skipped: 3}, stats)
	require.Len(t, target.revisions, 1)
	require.Len(t, target.revisions[0].Items, 2)
	require.Equal(t, []bool{true}, target.processing)
	require.Equal(t, []bool{true}, target.sleeping)
	require.Equal(t, []uuid.UUID{current}, target.current)
}

func TestSyncTailsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	writeFeed(t, path, itemLine(uuid.New(), "visit"))
	target := &stubTarget{}
	f := New(path, target, nil)
	ctx := context.Background()

	_, err := f.Sync(ctx)
	require.NoError(t, err)
	consumed := f.Offset()

	appendFeed(t, path, `{"op":"processing","value":true}`)
	stats, err := f.Sync(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Lines, "partial line waits for its newline")
	require.Equal(t, consumed, f.Offset())

	appendFeed(t, path, "\n"+itemLine(uuid.New(), "visit")+"\n")
	stats, err = f.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Lines)
	require.Equal(t, 2, target.revisionCount())
	require.Equal(t, []bool{true}, target.processing)
}

func TestSyncRereadsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	writeFeed(t, path, itemLine(uuid.New(), "visit"), itemLine(uuid.New(), "visit"))
	target := &stubTarget{}
	f := New(path, target, nil)
	ctx := context.Background()

	_, err := f.Sync(ctx)
	require.NoError(t, err)

	writeFeed(t, path, `{"op":"processing","value":false}`)
	stats, err := f.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Lines)
	require.Equal(t, []bool{false}, target.processing)
}

func TestSyncMissingFile(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "absent.jsonl"), &stubTarget{}, nil)

	stats, err := f.Sync(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.Lines)
}

func TestSyncKeepsOffsetOnApplyFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	writeFeed(t, path, itemLine(uuid.New(), "visit"))
	target := &stubTarget{err: errors.New("database is locked")}
	f := New(path, target, nil)

	_, err := f.Sync(context.Background())
	require.Error(t, err)
	require.Zero(t, f.Offset())
}

func TestSyncSettlesAppliedLinesBeforeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	first, second := uuid.New(), uuid.New()
	writeFeed(t, path,
		itemLine(first, "visit"),
		`{"op":"processing","value":true}`,
		itemLine(second, "visit"),
	)
	target := &stubTarget{err: errors.New("database is locked"), failAt: 2}
	f := New(path, target, nil)

	_, err := f.Sync(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, target.revisionCount())
	require.Equal(t, []bool{true}, target.processing)

	lines := strings.SplitAfter(string(mustRead(t, path)), "\n")
	require.Equal(t, int64(len(lines[0])+len(lines[1])), f.Offset())

	stats, err := f.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Items)
	require.Equal(t, 2, target.revisionCount())
	require.Equal(t, second, target.revisions[1].Items[0].ID)
	require.Equal(t, []bool{true}, target.processing, "processing record is not replayed")
}

func TestSyncSkipsOversizeLine(t *testing.T) {
	prev := maxLineBytes
	maxLineBytes = 256
	t.Cleanup(func() { maxLineBytes = prev })

	path := filepath.Join(t.TempDir(), "feed.jsonl")
	oversize := `{"op":"item","id":"` + strings.Repeat("x", 512) + `"}`
	writeFeed(t, path, oversize, itemLine(uuid.New(), "visit"))
	target := &stubTarget{}
	f := New(path, target, nil)

	stats, err := f.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Lines)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 1, target.revisionCount())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, info.Size(), f.Offset())
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestRunPicksUpWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feed.jsonl")
	target := &stubTarget{}
	f := New(path, target, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for target.revisionCount() == 0 && time.Now().Before(deadline) {
		writeFeed(t, path, itemLine(uuid.New(), "visit"))
		time.Sleep(50 * time.Millisecond)
	}
	cancel()

	require.NoError(t, <-done)
	require.NotZero(t, target.revisionCount())
}
