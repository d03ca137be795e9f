package changelog

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies a single tree mutation.
type ChangeType string

const (
	Create  ChangeType = "CREATE"
	Update  ChangeType = "UPDATE"
	Delete  ChangeType = "DELETE"
	Reorder ChangeType = "REORDER"
)

func (ct ChangeType) Valid() bool {
	switch ct {
	case Create, Update, Delete, Reorder:
		return true
	}
	return false
}

// Record is one immutable audit-trail entry. Records are never mutated or
// deleted here; retention is an external policy. The actor's display name is
// denormalized at write time since the identity store lives outside this app.
type Record struct {
	ID          uuid.UUID  `json:"id"`
	OfferingID  string     `json:"offering_id"`
	ChangeType  ChangeType `json:"change_type"`
	Path        string     `json:"path"`
	OldValue    string     `json:"old_value,omitempty"`
	NewValue    string     `json:"new_value,omitempty"`
	Description string     `json:"description,omitempty"`
	ActorID     string     `json:"actor_id"`
	ActorName   string     `json:"actor_name"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
}
