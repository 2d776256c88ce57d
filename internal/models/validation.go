package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Item validation errors.
var (
	ErrMissingItemID    = errors.New("item id is required")
	ErrDetailMismatch   = errors.New("detail does not match item kind")
	ErrInvalidDateRange = errors.New("date range ends before it starts")
)

// Problem is one failed check on a field.
type Problem struct {
	Field string
	Err   error
}

// Invalid collects the problems found validating one item or place. It
// unwraps to every problem, so errors.Is matches any of the sentinels above.
type Invalid struct {
	// Subject names what was validated, e.g. "visit 5b1e4f7a" or `place "Gym"`.
	Subject  string
	Problems []Problem
}

func itemSubject(kind ItemKind, id uuid.UUID) string {
	name := string(kind)
	if name == "" {
		name = "item"
	}
	if id == uuid.Nil {
		return name
	}
	return name + " " + id.String()[:8]
}

func placeSubject(name string) string {
	if strings.TrimSpace(name) == "" {
		return "place"
	}
	return fmt.Sprintf("place %q", name)
}

// Add records err against field. A nil err is ignored.
func (v *Invalid) Add(field string, err error) {
	if err == nil {
		return
	}
	v.Problems = append(v.Problems, Problem{Field: field, Err: err})
}

// Addf records a formatted problem against field.
func (v *Invalid) Addf(field, format string, args ...any) {
	v.Add(field, fmt.Errorf(format, args...))
}

// Fields lists the failing fields in the order they were checked.
func (v *Invalid) Fields() []string {
	fields := make([]string, 0, len(v.Problems))
	for _, p := range v.Problems {
		fields = append(fields, p.Field)
	}
	return fields
}

// Err returns v, or nil when nothing failed.
func (v *Invalid) Err() error {
	if v == nil || len(v.Problems) == 0 {
		return nil
	}
	return v
}

func (v *Invalid) Error() string {
	var b strings.Builder
	if v.Subject != "" {
		b.WriteString(v.Subject)
		b.WriteString(": ")
	}
	if len(v.Problems) == 0 {
		b.WriteString("invalid")
		return b.String()
	}
	for i, p := range v.Problems {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(p.Field)
		b.WriteString(": ")
		b.WriteString(p.Err.Error())
	}
	return b.String()
}

func (v *Invalid) Unwrap() []error {
	errs := make([]error, 0, len(v.Problems))
	for _, p := range v.Problems {
		errs = append(errs, p.Err)
	}
	return errs
}
