package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/Astrrra/arcmini/internal/logging"
	"github.com/Astrrra/arcmini/internal/models"
)

// ErrItemNotFound is returned when no item has the requested id.
var ErrItemNotFound = errors.New("timeline item not found")

type itemDetail struct {
	Visit *models.VisitDetail `json:"visit,omitempty"`
	Path  *models.PathDetail  `json:"path,omitempty"`
}

// ItemRepository handles timeline item persistence.
type ItemRepository struct {
	db *DB
}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Upsert inserts the item or replaces the stored revision.
func (r *ItemRepository) Upsert(ctx context.Context, item *models.Item) error {
	return upsertItem(ctx, r.db, item)
}

// UpsertMany stores items in one transaction, retrying while the database is busy.
func (r *ItemRepository) UpsertMany(ctx context.Context, items []*models.Item) error {
	return r.db.WriteTx(ctx, func(tx *sql.Tx) error {
		for _, item := range items {
			if err := upsertItem(ctx, tx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertItem(ctx context.Context, ex execer, item *models.Item) error {
	if item == nil {
		return errors.New("item is required")
	}
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}

	detail, err := sonic.Marshal(itemDetail{Visit: item.Visit, Path: item.Path})
	if err != nil {
		return fmt.Errorf("failed to marshal item detail: %w", err)
	}

	var startNs, endNs *int64
	if item.DateRange != nil {
		s, e := item.DateRange.Start.UnixNano(), item.DateRange.End.UnixNano()
		startNs, endNs = &s, &e
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO timeline_items (
			id, kind, start_ns, end_ns, invalidated, worth_keeping,
			merge_locked, detail_json, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			start_ns = excluded.start_ns,
			end_ns = excluded.end_ns,
			invalidated = excluded.invalidated,
			worth_keeping = excluded.worth_keeping,
			merge_locked = excluded.merge_locked,
			detail_json = excluded.detail_json,
			updated_at = excluded.updated_at
	`,
		item.ID.String(),
		string(item.Kind),
		startNs,
		endNs,
		boolToInt(item.Invalidated),
		boolToInt(item.WorthKeeping),
		boolToInt(item.MergeLocked),
		string(detail),
		item.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

const itemColumns = `id, kind, start_ns, end_ns, invalidated, worth_keeping, merge_locked, detail_json, updated_at`

// Get retrieves an item by id.
func (r *ItemRepository) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM timeline_items WHERE id = ?`, id.String())

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListRange returns the dated items overlapping rng, oldest first. Rows
// with a kind outside the known set are skipped.
func (r *ItemRepository) ListRange(ctx context.Context, rng models.DateRange) ([]*models.Item, error) {
	start, end := rng.Start.UnixNano(), rng.End.UnixNano()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM timeline_items
		WHERE start_ns IS NOT NULL
			AND start_ns < ?
			AND (end_ns > ? OR start_ns >= ?)
		ORDER BY start_ns, id
	`, end, start, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	logger := logging.Component("db")
	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if errors.Is(err, models.ErrUnknownKind) {
			logger.Warn().Err(err).Msg("skipping stored item")
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// Count returns the number of stored items.
func (r *ItemRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM timeline_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*models.Item, error) {
	var (
		id, kind, updatedAt                  string
		startNs, endNs                       sql.NullInt64
		invalidated, worthKeeping, mergeLock int
		detailJSON                           sql.NullString
	)
	if err := s.Scan(&id, &kind, &startNs, &endNs, &invalidated, &worthKeeping, &mergeLock, &detailJSON, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}

	parsedKind, err := models.ParseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", id, err)
	}
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("failed to parse item id %q: %w", id, err)
	}

	item := &models.Item{
		ID:           itemID,
		Kind:         parsedKind,
		Invalidated:  invalidated != 0,
		WorthKeeping: worthKeeping != 0,
		MergeLocked:  mergeLock != 0,
	}
	if startNs.Valid && endNs.Valid {
		rng := models.NewDateRange(time.Unix(0, startNs.Int64).UTC(), time.Unix(0, endNs.Int64).UTC())
		item.DateRange = &rng
	}
	if detailJSON.Valid && detailJSON.String != "" {
		var detail itemDetail
		if err := sonic.UnmarshalString(detailJSON.String, &detail); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item detail: %w", err)
		}
		item.Visit, item.Path = detail.Visit, detail.Path
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		item.UpdatedAt = t
	}
	return item, nil
}
