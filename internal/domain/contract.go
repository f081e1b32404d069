package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContractAction is the last action taken against the target side of a contract
type ContractAction string

const (
	ContractActionCreate ContractAction = "create"
	ContractActionUpdate ContractAction = "update"
	ContractActionDelete ContractAction = "delete"
)

// SynchronizationContract is the durable change-tracking record linking one
// origin object to its target counterpart. At most one contract exists per
// (synchronization, origin id) pair. TargetID is empty only before the first
// successful write or after a delete.
type SynchronizationContract struct {
	ID                uuid.UUID `json:"id" db:"id"`
	SynchronizationID uuid.UUID `json:"synchronizationId" db:"synchronization_id"`

	OriginID   string `json:"originId" db:"origin_id"`
	OriginHash string `json:"originHash,omitempty" db:"origin_hash"`

	TargetID         string         `json:"targetId,omitempty" db:"target_id"`
	TargetHash       string         `json:"targetHash,omitempty" db:"target_hash"`
	TargetLastAction ContractAction `json:"targetLastAction,omitempty" db:"target_last_action"`

	SourceLastChanged *time.Time `json:"sourceLastChanged,omitempty" db:"source_last_changed"`
	SourceLastChecked *time.Time `json:"sourceLastChecked,omitempty" db:"source_last_checked"`
	SourceLastSynced  *time.Time `json:"sourceLastSynced,omitempty" db:"source_last_synced"`
	TargetLastChanged *time.Time `json:"targetLastChanged,omitempty" db:"target_last_changed"`
	TargetLastSynced  *time.Time `json:"targetLastSynced,omitempty" db:"target_last_synced"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HasTarget reports whether the contract already tracks a written target object
func (c *SynchronizationContract) HasTarget() bool {
	return c.TargetID != "" && c.TargetHash != ""
}
