package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldMapping is one target-path assignment of a mapping recipe.
// Source is interpreted in order of preference: a literal value (non-string),
// a dotted path into the input, or a template rendered against the whole
// input. Declaration order is preserved.
type FieldMapping struct {
	Target string `json:"target" validate:"required"`
	Source any    `json:"source"`
}

// FieldCast applies one or more cast operators to a target path, in order
type FieldCast struct {
	Path  string   `json:"path" validate:"required"`
	Casts []string `json:"casts" validate:"required,min=1"`
}

// Mapping is a declarative transformation recipe. Immutable per version;
// referenced by id from synchronizations and rules.
type Mapping struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required,min=1,max=255"`
	Description string    `json:"description,omitempty" db:"description"`
	Version     int       `json:"version" db:"version"`

	Fields      []FieldMapping `json:"fields,omitempty" db:"fields"`
	Unset       []string       `json:"unset,omitempty" db:"unset"`
	Casts       []FieldCast    `json:"casts,omitempty" db:"casts"`
	PassThrough bool           `json:"passThrough" db:"pass_through"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
