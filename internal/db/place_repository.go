package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Astrrra/arcmini/internal/models"
)

// Place repository errors.
var (
	ErrPlaceNotFound      = errors.New("place not found")
	ErrPlaceAlreadyExists = errors.New("place with this id already exists")
)

// PlaceRepository handles place persistence.
type PlaceRepository struct {
	db *DB
}

// NewPlaceRepository creates a new PlaceRepository.
func NewPlaceRepository(db *DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

// Add stores a new place, assigning an id when missing.
func (r *PlaceRepository) Add(ctx context.Context, place *models.Place) error {
	if err := place.Validate(); err != nil {
		return fmt.Errorf("invalid place: %w", err)
	}
	if place.ID == uuid.Nil {
		place.ID = uuid.New()
	}
	if place.CreatedAt.IsZero() {
		place.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO places (id, name, latitude, longitude, radius_meters, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		place.ID.String(),
		place.Name,
		place.Center.Latitude,
		place.Center.Longitude,
		place.RadiusMeters,
		place.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrPlaceAlreadyExists
		}
		return fmt.Errorf("failed to insert place: %w", err)
	}
	return nil
}

// List returns all places ordered by name.
func (r *PlaceRepository) List(ctx context.Context) ([]*models.Place, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, latitude, longitude, radius_meters, created_at
		FROM places
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	var places []*models.Place
	for rows.Next() {
		var (
			id, createdAt string
			place         models.Place
		)
		if err := rows.Scan(&id, &place.Name, &place.Center.Latitude, &place.Center.Longitude, &place.RadiusMeters, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("failed to parse place id %q: %w", id, err)
		}
		place.ID = parsed
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			place.CreatedAt = t
		}
		places = append(places, &place)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate places: %w", err)
	}
	return places, nil
}

// Nearest returns the closest place whose edge lies within maxMeters of c.
func (r *PlaceRepository) Nearest(ctx context.Context, c models.Coordinate, maxMeters float64) (*models.Place, float64, error) {
	places, err := r.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	var (
		best     *models.Place
		bestDist float64
	)
	for _, place := range places {
		dist := models.DistanceMeters(c, place.Center) - place.RadiusMeters
		if dist < 0 {
			dist = 0
		}
		if dist > maxMeters {
			continue
		}
		if best == nil || dist < bestDist {
			best, bestDist = place, dist
		}
	}
	if best == nil {
		return nil, 0, ErrPlaceNotFound
	}
	return best, bestDist, nil
}
