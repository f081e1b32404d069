package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source describes an external API endpoint the engine can call.
// Rate-limit state observed on responses is cached per source id by the
// call service; the entity itself only carries static configuration.
type Source struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	Name        string            `json:"name" db:"name" validate:"required,min=1,max=255"`
	Location    string            `json:"location" db:"location" validate:"required,url"`
	Headers     map[string]string `json:"headers,omitempty" db:"headers"`
	Query       map[string]string `json:"query,omitempty" db:"query"`
	Timeout     time.Duration     `json:"timeout,omitempty" db:"timeout"`
	RateLimit   int               `json:"rateLimit,omitempty" db:"rate_limit"`
	IsEnabled   bool              `json:"isEnabled" db:"is_enabled"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time         `json:"updatedAt" db:"updated_at"`
}
