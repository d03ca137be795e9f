package collab

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/mtaala/core"
)

var (
	// errors
	ErrSessionExists = errors.New("an active session already exists for this offering")
	ErrNoSession     = errors.New("editing session not found")

	// nowFunc is mockable for tests.
	nowFunc = time.Now
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultStalenessWindow   = 60 * time.Second
)

type (
	Repository interface {
		// FindActiveSession returns ErrNoSession when no session exists.
		FindActiveSession(ctx context.Context, offeringID string) (Session, error)
		// CreateSession must enforce uniqueness on OfferingID and return
		// ErrSessionExists on conflict. Store-level uniqueness is the sole
		// arbiter of races between two simultaneous first openers.
		CreateSession(ctx context.Context, sess Session) (Session, error)
		UpsertPresence(ctx context.Context, pres Presence) error
		// QueryPresence returns presences with LastSeen >= since.
		QueryPresence(ctx context.Context, sessionID uuid.UUID, since time.Time) ([]Presence, error)
	}

	// Service coordinates the "who is editing this document right now"
	// lifecycle. Every failure here is non-fatal: collaboration degrades to an
	// empty collaborator list and editing continues.
	Service struct {
		repo              Repository
		logger            core.Logger
		heartbeatInterval time.Duration
		stalenessWindow   time.Duration
	}
)

func NewService(repo Repository, logger core.Logger, conf *core.Config) *Service {
	svc := &Service{
		repo:              repo,
		logger:            logger,
		heartbeatInterval: defaultHeartbeatInterval,
		stalenessWindow:   defaultStalenessWindow,
	}
	if conf != nil {
		if conf.Collab.HeartbeatInterval > 0 {
			svc.heartbeatInterval = conf.Collab.HeartbeatInterval
		}
		if conf.Collab.StalenessWindow > 0 {
			svc.stalenessWindow = conf.Collab.StalenessWindow
		}
	}
	return svc
}

// Open looks up the editing session for an offering, creating it if absent,
// and joins the actor to it. Two simultaneous first openers are arbitrated by
// the store's uniqueness guarantee: the loser of the race re-reads the winner's
// session. Failures degrade to "no collaborative presence" (zero Session, nil
// error) without blocking editing.
func (svc *Service) Open(ctx context.Context, offeringID string, actor core.Actor) (Session, error) {
	sess, err := svc.repo.FindActiveSession(ctx, offeringID)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			return svc.degrade("finding session", offeringID, err)
		}
		sess, err = svc.repo.CreateSession(ctx, Session{
			ID:         uuid.New(),
			OfferingID: offeringID,
			CreatedBy:  actor.ID,
			CreatedAt:  nowFunc().UTC(),
		})
		if errors.Is(err, ErrSessionExists) {
			// lost the race; reuse the winner's session
			sess, err = svc.repo.FindActiveSession(ctx, offeringID)
		}
		if err != nil {
			return svc.degrade("creating session", offeringID, err)
		}
	}

	if err := svc.repo.UpsertPresence(ctx, svc.presence(sess.ID, actor)); err != nil {
		return svc.degrade("joining session", offeringID, err)
	}
	return sess, nil
}

// Heartbeat refreshes the actor's presence. Failures are swallowed.
func (svc *Service) Heartbeat(ctx context.Context, sessionID uuid.UUID, actor core.Actor) {
	if sessionID == uuid.Nil {
		return // degraded mode, nothing to refresh
	}
	if err := svc.repo.UpsertPresence(ctx, svc.presence(sessionID, actor)); err != nil {
		svc.logger.Warn("refreshing presence", err, map[string]interface{}{"session_id": sessionID})
	}
}

// StartHeartbeat refreshes presence on a fixed interval until the returned
// stop func is called or ctx is cancelled. The first beat is immediate.
func (svc *Service) StartHeartbeat(ctx context.Context, sessionID uuid.UUID, actor core.Actor) (stop func()) {
	hbCtx, cancel := context.WithCancel(ctx)
	go func() {
		svc.Heartbeat(hbCtx, sessionID, actor)
		ticker := time.NewTicker(svc.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				svc.Heartbeat(hbCtx, sessionID, actor)
			}
		}
	}()
	return cancel
}

// Collaborators returns the other current editors of a session: presences
// within the staleness window, excluding the viewer's own entry. Failures
// degrade to an empty list.
func (svc *Service) Collaborators(ctx context.Context, sessionID uuid.UUID, viewer core.Actor) []Presence {
	if sessionID == uuid.Nil {
		return nil
	}
	since := nowFunc().UTC().Add(-svc.stalenessWindow)
	presences, err := svc.repo.QueryPresence(ctx, sessionID, since)
	if err != nil {
		svc.logger.Warn("querying presence", err, map[string]interface{}{"session_id": sessionID})
		return nil
	}

	others := make([]Presence, 0, len(presences))
	for _, pres := range presences {
		if pres.ActorID == viewer.ID {
			continue
		}
		others = append(others, pres)
	}
	sort.Slice(others, func(i, j int) bool { return others[i].ActorName < others[j].ActorName })
	return others
}

func (svc *Service) presence(sessionID uuid.UUID, actor core.Actor) Presence {
	return Presence{
		SessionID: sessionID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		LastSeen:  nowFunc().UTC(),
	}
}

func (svc *Service) degrade(msg, offeringID string, err error) (Session, error) {
	svc.logger.Warn(msg, err, map[string]interface{}{"offering_id": offeringID})
	return Session{}, nil
}
