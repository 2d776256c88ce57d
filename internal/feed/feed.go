package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Astrrra/arcmini/internal/engine"
	"github.com/Astrrra/arcmini/internal/logging"
	"github.com/Astrrra/arcmini/internal/models"
)

// maxLineBytes bounds one record. Longer lines are skipped.
var maxLineBytes = 10 * 1024 * 1024

// Target receives decoded records.
type Target interface {
	Apply(ctx context.Context, rev engine.Revision) error
	SetProcessing(ctx context.Context, processing bool)
	SetCurrentItem(ctx context.Context, id uuid.UUID)
}

// SleepSetter receives recorder records.
type SleepSetter interface {
	SetSleeping(ctx context.Context, sleeping bool)
}

// Stats summarises one sync pass.
type Stats struct {
	Lines   int `json:"lines"`
	Items   int `json:"items"`
	Skipped int `json:"skipped"`
}

// Feed tails a JSONL file and applies new lines to the engine.
type Feed struct {
	path     string
	target   Target
	recorder SleepSetter
	logger   zerolog.Logger

	mu     sync.Mutex
	offset int64
}

// New creates a feed for path. recorder may be nil.
func New(path string, target Target, recorder SleepSetter) *Feed {
	return &Feed{
		path:     filepath.Clean(path),
		target:   target,
		recorder: recorder,
		logger:   logging.Component("feed").With().Str("path", path).Logger(),
	}
}

// Offset returns how many bytes have been consumed.
func (f *Feed) Offset() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offset
}

// Sync reads every complete line appended since the last call. A file
// shorter than the consumed offset was truncated and is read from the start.
// A trailing line without a newline is left for the next call.
func (f *Feed) Sync(ctx context.Context) (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.offset = 0
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("open feed: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Stats{}, fmt.Errorf("stat feed: %w", err)
	}
	if info.Size() < f.offset {
		f.logger.Info().Int64("offset", f.offset).Int64("size", info.Size()).Msg("feed truncated, rereading")
		f.offset = 0
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return Stats{}, fmt.Errorf("seek feed: %w", err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return Stats{}, fmt.Errorf("read feed: %w", err)
	}
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return Stats{}, nil
	}
	complete := data[:end+1]

	stats, settled, err := f.applyLines(ctx, complete)
	f.offset += int64(settled)
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// applyLines applies records in order. Runs of item records are batched
// into one revision. It returns how many bytes of data are settled: every
// line up to that point was applied or skipped, so a failed batch and the
// lines after it are retried on the next sync.
func (f *Feed) applyLines(ctx context.Context, data []byte) (Stats, int, error) {
	var (
		stats     Stats
		pending   []*models.Item
		settled   int
		batchEnds int
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := f.target.Apply(ctx, engine.Revision{Items: pending}); err != nil {
			return err
		}
		stats.Items += len(pending)
		pending = nil
		settled = batchEnds
		return nil
	}
	// skip settles a line that has no effect. Inside a batch it settles
	// with the batch.
	skip := func(end int) {
		stats.Skipped++
		if len(pending) == 0 {
			settled = end
		} else {
			batchEnds = end
		}
	}

	for pos := 0; pos < len(data); {
		end := len(data)
		if i := bytes.IndexByte(data[pos:], '\n'); i >= 0 {
			end = pos + i + 1
		}
		raw := data[pos:end]
		pos = end

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			if len(pending) == 0 {
				settled = end
			} else {
				batchEnds = end
			}
			continue
		}
		stats.Lines++

		if len(raw) > maxLineBytes {
			f.logger.Warn().Int("line", stats.Lines).Int("bytes", len(raw)).Msg("skipping oversize feed line")
			skip(end)
			continue
		}

		rec, err := ParseRecord(line)
		if err != nil {
			f.logger.Debug().Err(err).Int("line", stats.Lines).Msg("skipping invalid feed line")
			skip(end)
			continue
		}

		if rec.Op == OpItem {
			item, err := rec.Item()
			if err != nil {
				f.logger.Debug().Err(err).Int("line", stats.Lines).Msg("skipping invalid item record")
				skip(end)
				continue
			}
			pending = append(pending, item)
			batchEnds = end
			continue
		}

		if err := flush(); err != nil {
			return stats, settled, err
		}
		switch rec.Op {
		case OpProcessing:
			f.target.SetProcessing(ctx, rec.Value)
		case OpRecorder:
			if f.recorder != nil {
				f.recorder.SetSleeping(ctx, rec.Sleeping)
			}
		case OpCurrent:
			id, err := rec.CurrentID()
			if err != nil {
				f.logger.Debug().Err(err).Int("line", stats.Lines).Msg("skipping invalid current record")
				skip(end)
				continue
			}
			f.target.SetCurrentItem(ctx, id)
		}
		settled = end
	}
	err := flush()
	return stats, settled, err
}

// Run syncs once, then again on every change to the file until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create feed dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch feed dir: %w", err)
	}

	f.syncAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				f.mu.Lock()
				f.offset = 0
				f.mu.Unlock()
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				f.syncAndLog(ctx)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn().Err(err).Msg("feed watcher error")
		}
	}
}

func (f *Feed) syncAndLog(ctx context.Context) {
	stats, err := f.Sync(ctx)
	if err != nil {
		f.logger.Warn().Err(err).Msg("feed sync failed")
		return
	}
	if stats.Lines > 0 {
		f.logger.Debug().
			Int("lines", stats.Lines).
			Int("items", stats.Items).
			Int("skipped", stats.Skipped).
			Msg("feed synced")
	}
}
