// Package models defines the timeline domain types shared across arcmini.
package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownKind is returned when a record names an item kind outside the closed set.
var ErrUnknownKind = errors.New("unknown timeline item kind")

// ItemKind distinguishes the two timeline item variants.
type ItemKind string

const (
	ItemKindVisit ItemKind = "visit"
	ItemKindPath  ItemKind = "path"
)

// ParseKind validates a kind read from an external source.
func ParseKind(raw string) (ItemKind, error) {
	switch ItemKind(strings.ToLower(strings.TrimSpace(raw))) {
	case ItemKindVisit:
		return ItemKindVisit, nil
	case ItemKindPath:
		return ItemKindPath, nil
	default:
		return "", ErrUnknownKind
	}
}

// Coordinate is a WGS84 position.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// VisitDetail carries the visit-only attributes of an item.
type VisitDetail struct {
	// PlaceName is empty until a place has been assigned.
	PlaceName string `json:"place_name,omitempty"`

	// Center is the visit's representative location.
	Center Coordinate `json:"center"`

	// RadiusMeters approximates the visit's spatial extent.
	RadiusMeters float64 `json:"radius_m,omitempty"`
}

// PathDetail carries the path-only attributes of an item.
type PathDetail struct {
	// DistanceMeters is the travelled distance.
	DistanceMeters float64 `json:"distance_m,omitempty"`

	// ActivityType is the classified mode of travel (walking, car, ...).
	ActivityType string `json:"activity_type,omitempty"`

	// From and To are the path endpoints.
	From Coordinate `json:"from"`
	To   Coordinate `json:"to"`
}

// Item is a recorded timeline item. Items are owned by the processing engine;
// everything else treats them as read-only snapshots.
type Item struct {
	// ID is the stable identifier of the item.
	ID uuid.UUID `json:"id"`

	// Kind selects which detail struct is populated.
	Kind ItemKind `json:"kind"`

	// DateRange is nil for items that have no samples yet.
	DateRange *DateRange `json:"date_range,omitempty"`

	// Invalidated is terminal: invalidated items never come back.
	Invalidated bool `json:"invalidated,omitempty"`

	// WorthKeeping is the engine's current classification of the item.
	WorthKeeping bool `json:"worth_keeping,omitempty"`

	// MergeLocked is set while the engine protects the item from merging.
	MergeLocked bool `json:"merge_locked,omitempty"`

	Visit *VisitDetail `json:"visit,omitempty"`
	Path  *PathDetail  `json:"path,omitempty"`

	// UpdatedAt is when the engine last revised the item.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsVisit reports whether the item is a visit.
func (i *Item) IsVisit() bool { return i != nil && i.Kind == ItemKindVisit }

// IsPath reports whether the item is a path.
func (i *Item) IsPath() bool { return i != nil && i.Kind == ItemKindPath }

// StartsAt returns the range start, or the zero time when the item has no range.
func (i *Item) StartsAt() time.Time {
	if i == nil || i.DateRange == nil {
		return time.Time{}
	}
	return i.DateRange.Start
}

// NeedsPlace reports whether the item is a visit without an assigned place.
func (i *Item) NeedsPlace() bool {
	return i.IsVisit() && (i.Visit == nil || strings.TrimSpace(i.Visit.PlaceName) == "")
}

// Clone returns a deep copy so snapshots cannot alias engine-owned memory.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	out := *i
	if i.DateRange != nil {
		r := *i.DateRange
		out.DateRange = &r
	}
	if i.Visit != nil {
		v := *i.Visit
		out.Visit = &v
	}
	if i.Path != nil {
		p := *i.Path
		out.Path = &p
	}
	return &out
}

// Validate checks that the item is structurally usable.
func (i *Item) Validate() error {
	validation := &Invalid{Subject: itemSubject(i.Kind, i.ID)}
	if i.ID == uuid.Nil {
		validation.Add("id", ErrMissingItemID)
	}
	switch i.Kind {
	case ItemKindVisit:
		if i.Path != nil {
			validation.Add("path", ErrDetailMismatch)
		}
	case ItemKindPath:
		if i.Visit != nil {
			validation.Add("visit", ErrDetailMismatch)
		}
	default:
		validation.Add("kind", ErrUnknownKind)
	}
	if i.DateRange != nil && i.DateRange.End.Before(i.DateRange.Start) {
		validation.Add("date_range", ErrInvalidDateRange)
	}
	return validation.Err()
}
