package models

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Place validation errors.
var (
	ErrMissingPlaceName  = errors.New("place name is required")
	ErrInvalidCoordinate = errors.New("coordinate out of range")
)

const earthRadiusMeters = 6371000.0

// Place is a named location that visits can be assigned to.
type Place struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius_m,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Validate checks the place's name and coordinate.
func (p *Place) Validate() error {
	validation := &Invalid{Subject: placeSubject(p.Name)}
	if strings.TrimSpace(p.Name) == "" {
		validation.Add("name", ErrMissingPlaceName)
	}
	if err := p.Center.Validate(); err != nil {
		validation.Add("center", err)
	}
	if p.RadiusMeters < 0 {
		validation.Addf("radius_m", "radius must not be negative, got %.0f m", p.RadiusMeters)
	}
	return validation.Err()
}

// Validate checks latitude and longitude bounds.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Coordinates returns the positions an item covers: the center of a visit
// or the endpoints of a path.
func (i *Item) Coordinates() []Coordinate {
	switch {
	case i.IsVisit() && i.Visit != nil:
		return []Coordinate{i.Visit.Center}
	case i.IsPath() && i.Path != nil:
		return []Coordinate{i.Path.From, i.Path.To}
	default:
		return nil
	}
}
