// Package feed reads engine revisions from a JSONL file, one record per line.
package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/Astrrra/arcmini/internal/models"
)

// Op names a record type.
type Op string

const (
	OpItem       Op = "item"
	OpProcessing Op = "processing"
	OpRecorder   Op = "recorder"
	OpCurrent    Op = "current"
)

// ErrUnknownOp is returned for records with an unrecognised op.
var ErrUnknownOp = errors.New("unknown feed op")

// Record is the wire form of one feed line.
type Record struct {
	Op Op `json:"op"`

	// Item and current records.
	ID           string              `json:"id,omitempty"`
	Kind         string              `json:"kind,omitempty"`
	Start        *time.Time          `json:"start,omitempty"`
	End          *time.Time          `json:"end,omitempty"`
	Invalidated  bool                `json:"invalidated,omitempty"`
	WorthKeeping bool                `json:"worth_keeping,omitempty"`
	MergeLocked  bool                `json:"merge_locked,omitempty"`
	Visit        *models.VisitDetail `json:"visit,omitempty"`
	Path         *models.PathDetail  `json:"path,omitempty"`

	// Processing records.
	Value bool `json:"value,omitempty"`

	// Recorder records.
	Sleeping bool `json:"sleeping,omitempty"`
}

// ParseRecord decodes a single line.
func ParseRecord(line []byte) (Record, error) {
	var rec Record
	if err := sonic.Unmarshal(line, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	rec.Op = Op(strings.ToLower(strings.TrimSpace(string(rec.Op))))
	switch rec.Op {
	case OpItem, OpProcessing, OpRecorder, OpCurrent:
		return rec, nil
	default:
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownOp, rec.Op)
	}
}

// Item converts an item record into a validated item.
func (r Record) Item() (*models.Item, error) {
	id, err := uuid.Parse(strings.TrimSpace(r.ID))
	if err != nil {
		return nil, fmt.Errorf("parse item id: %w", err)
	}
	kind, err := models.ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}

	item := &models.Item{
		ID:           id,
		Kind:         kind,
		Invalidated:  r.Invalidated,
		WorthKeeping: r.WorthKeeping,
		MergeLocked:  r.MergeLocked,
		Visit:        r.Visit,
		Path:         r.Path,
		UpdatedAt:    time.Now().UTC(),
	}
	if r.Start != nil && r.End != nil {
		rng := models.NewDateRange(*r.Start, *r.End)
		item.DateRange = &rng
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// CurrentID returns the id of a current record; an empty id clears the current item.
func (r Record) CurrentID() (uuid.UUID, error) {
	raw := strings.TrimSpace(r.ID)
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}
