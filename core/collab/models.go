package collab

import (
	"time"

	"github.com/google/uuid"
)

type (
	// Session is the shared collaborative-editing context for one document.
	// One active record exists per offering: the first editor to open the
	// document creates it, subsequent openers reuse it. There is no explicit
	// close; a session goes stale when its editors' heartbeats age out.
	Session struct {
		ID         uuid.UUID `json:"id"`
		OfferingID string    `json:"offering_id"`
		CreatedBy  string    `json:"created_by"`
		CreatedAt  time.Time `json:"created_at"` // UTC
	}

	// Presence records one editor's recent activity within a session.
	// It is refreshed on every heartbeat; an editor is "current" iff
	// now - LastSeen < the staleness window.
	Presence struct {
		SessionID uuid.UUID `json:"session_id"`
		ActorID   string    `json:"actor_id"`
		ActorName string    `json:"actor_name"`
		LastSeen  time.Time `json:"last_seen"` // UTC
	}
)

func (s Session) IsZero() bool {
	return s.ID == uuid.Nil
}
