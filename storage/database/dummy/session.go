package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/mtaala/core/collab"
)

type sessionRepository struct {
	db *sessionTable
}

var _ collab.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) collab.Repository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) FindActiveSession(_ context.Context, offeringID string) (collab.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sess, ok := repo.db.table[offeringID]; ok {
		return *sess, nil
	}
	return collab.Session{}, collab.ErrNoSession
}

func (repo *sessionRepository) CreateSession(_ context.Context, sess collab.Session) (collab.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[sess.OfferingID]; ok {
		return collab.Session{}, collab.ErrSessionExists
	}
	repo.db.table[sess.OfferingID] = &sess
	return sess, nil
}

func (repo *sessionRepository) UpsertPresence(_ context.Context, pres collab.Presence) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	byActor, ok := repo.db.presences[pres.SessionID]
	if !ok {
		byActor = make(map[string]*collab.Presence)
		repo.db.presences[pres.SessionID] = byActor
	}
	byActor[pres.ActorID] = &pres
	return nil
}

func (repo *sessionRepository) QueryPresence(_ context.Context, sessionID uuid.UUID, since time.Time) ([]collab.Presence, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	presences := make([]collab.Presence, 0, len(repo.db.presences[sessionID]))
	for _, pres := range repo.db.presences[sessionID] {
		if pres.LastSeen.Before(since) {
			continue
		}
		presences = append(presences, *pres)
	}
	return presences, nil
}
