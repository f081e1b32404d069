package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RuleAction matches a rule against the operation that triggered the pipeline
type RuleAction string

const (
	RuleActionCreate RuleAction = "create"
	RuleActionRead   RuleAction = "read"
	RuleActionUpdate RuleAction = "update"
	RuleActionDelete RuleAction = "delete"
)

// RuleTiming is the point in the reconciliation at which a rule fires
type RuleTiming string

const (
	RuleTimingBefore RuleTiming = "before"
	RuleTimingAfter  RuleTiming = "after"
)

// RuleType selects the handler a rule dispatches to. The set is closed;
// handlers are registered in a lookup table at pipeline construction.
type RuleType string

const (
	RuleTypeMapping         RuleType = "mapping"
	RuleTypeSaveObject      RuleType = "save_object"
	RuleTypeSynchronization RuleType = "synchronization"
	RuleTypeFetchFile       RuleType = "fetch_file"
	RuleTypeWriteFile       RuleType = "write_file"
	RuleTypeExtendInput     RuleType = "extend_input"
	RuleTypeError           RuleType = "error"
	RuleTypeCustom          RuleType = "custom"
)

// IsValid checks if the rule type is a known value
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeMapping, RuleTypeSaveObject, RuleTypeSynchronization,
		RuleTypeFetchFile, RuleTypeWriteFile, RuleTypeExtendInput,
		RuleTypeError, RuleTypeCustom:
		return true
	}
	return false
}

// Rule is one ordered, conditionally-gated pipeline step with a typed side effect
type Rule struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required,min=1,max=255"`
	Description string    `json:"description,omitempty" db:"description"`

	Action RuleAction `json:"action" db:"action" validate:"required,oneof=create read update delete"`
	Timing RuleTiming `json:"timing" db:"timing" validate:"required,oneof=before after"`
	Type   RuleType   `json:"type" db:"type" validate:"required"`

	// Conditions is a JSON-logic expression evaluated against the pipeline data
	Conditions json.RawMessage `json:"conditions,omitempty" db:"conditions"`

	// Configuration is the type-specific payload of the rule
	Configuration map[string]any `json:"configuration,omitempty" db:"configuration"`

	// Order sequences rules within a pipeline, ascending; ties keep
	// resolution order
	Order int `json:"order" db:"rule_order"`

	IsEnabled bool      `json:"isEnabled" db:"is_enabled"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
