package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies where synchronized objects are read from
type SourceType string

const (
	SourceTypeAPI      SourceType = "api"
	SourceTypeRegister SourceType = "register"
	SourceTypeDatabase SourceType = "database"
)

// IsValid checks if the source type is a known value
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeAPI, SourceTypeRegister, SourceTypeDatabase:
		return true
	}
	return false
}

// TargetType identifies where synchronized objects are written to
type TargetType string

const (
	TargetTypeAPI      TargetType = "api"
	TargetTypeRegister TargetType = "register"
	TargetTypeDatabase TargetType = "database"
)

// IsValid checks if the target type is a known value
func (t TargetType) IsValid() bool {
	switch t {
	case TargetTypeAPI, TargetTypeRegister, TargetTypeDatabase:
		return true
	}
	return false
}

// ExtraDataConfig describes a secondary fetch merged into each source object.
// Either Endpoint (a template supporting {{originId}} and {{subObjectId}})
// or EndpointPath (a dotted path inside the object holding the endpoint)
// must be set.
type ExtraDataConfig struct {
	Endpoint         string `json:"endpoint,omitempty"`
	EndpointPath     string `json:"endpointPath,omitempty"`
	Destination      string `json:"destination,omitempty"`
	ResultsPath      string `json:"resultsPath,omitempty"`
	BeforeConditions bool   `json:"beforeConditions,omitempty"`
	PerResultItem    bool   `json:"perResultItem,omitempty"`
}

// SourceConfig holds the fetch configuration of a synchronization
type SourceConfig struct {
	Endpoint     string            `json:"endpoint,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Query        map[string]string `json:"query,omitempty"`
	IDPath       string            `json:"idPath,omitempty"`
	ResultsPath  string            `json:"resultsPath,omitempty"`
	WholeBody    bool              `json:"wholeBody,omitempty"`
	PageParam    string            `json:"pageParam,omitempty"`
	ExtraData    []ExtraDataConfig `json:"extraData,omitempty"`
}

// TargetConfig holds the write configuration of a synchronization
type TargetConfig struct {
	// Register target
	Register string `json:"register,omitempty"`
	Schema   string `json:"schema,omitempty"`
	// Paths of properties holding sub-objects that need stable target ids
	SubObjectPaths []string `json:"subObjectPaths,omitempty"`

	// API target
	Endpoint       string     `json:"endpoint,omitempty"`
	Method         string     `json:"method,omitempty"`
	UpdateEndpoint string     `json:"updateEndpoint,omitempty"`
	UpdateMethod   string     `json:"updateMethod,omitempty"`
	DeleteEndpoint string     `json:"deleteEndpoint,omitempty"`
	IDPath         string     `json:"idPath,omitempty"`
	DeleteMapping  *uuid.UUID `json:"deleteMapping,omitempty"`
}

// Synchronization is the configuration of one source-target sync relationship.
// The engine treats it as read-only except CurrentPage, which is advanced
// after every successfully fetched page so an aborted run can resume.
type Synchronization struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required,min=1,max=255"`
	Description string    `json:"description,omitempty" db:"description"`

	SourceType   SourceType   `json:"sourceType" db:"source_type" validate:"required,oneof=api register database"`
	SourceID     string       `json:"sourceId" db:"source_id" validate:"required"`
	SourceConfig SourceConfig `json:"sourceConfig" db:"source_config"`

	TargetType   TargetType   `json:"targetType" db:"target_type" validate:"required,oneof=api register database"`
	TargetID     string       `json:"targetId" db:"target_id"`
	TargetConfig TargetConfig `json:"targetConfig" db:"target_config"`

	SourceTargetMapping *uuid.UUID `json:"sourceTargetMapping,omitempty" db:"source_target_mapping"`
	TargetSourceMapping *uuid.UUID `json:"targetSourceMapping,omitempty" db:"target_source_mapping"`
	SourceHashMapping   *uuid.UUID `json:"sourceHashMapping,omitempty" db:"source_hash_mapping"`

	// Conditions is a JSON-logic expression gating whether an object is
	// synchronized at all. Empty means always.
	Conditions json.RawMessage `json:"conditions,omitempty" db:"conditions"`

	// ActionIDs are rule references applied during reconciliation
	ActionIDs []uuid.UUID `json:"actions,omitempty" db:"actions"`

	// FollowUpIDs are synchronizations chained after this one completes
	FollowUpIDs []uuid.UUID `json:"followUps,omitempty" db:"follow_ups"`

	// CurrentPage is the pagination resume cursor
	CurrentPage int `json:"currentPage" db:"current_page"`

	IsEnabled bool      `json:"isEnabled" db:"is_enabled"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IDPath returns the configured origin id path, defaulting to "id"
func (s *Synchronization) IDPath() string {
	if s.SourceConfig.IDPath != "" {
		return s.SourceConfig.IDPath
	}
	return "id"
}

// HasConditions reports whether a gating expression is configured
func (s *Synchronization) HasConditions() bool {
	return len(s.Conditions) > 0 && string(s.Conditions) != "null" && string(s.Conditions) != "{}"
}
