package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core/collab"
)

const pqUniqueViolation = "23505"

type sessionRepository struct {
	db *sqlx.DB
}

var _ collab.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) collab.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) FindActiveSession(ctx context.Context, offeringID string) (collab.Session, error) {
	var sess collab.Session
	err := repo.db.QueryRowxContext(ctx,
		`SELECT id, offering_id, created_by, created_at FROM editing_session WHERE offering_id = $1`,
		offeringID,
	).Scan(&sess.ID, &sess.OfferingID, &sess.CreatedBy, &sess.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return collab.Session{}, collab.ErrNoSession
		}
		return collab.Session{}, errors.Wrap(err, "selecting session")
	}
	return sess, nil
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess collab.Session) (collab.Session, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO editing_session (id, offering_id, created_by, created_at) VALUES ($1, $2, $3, $4)`,
		sess.ID, sess.OfferingID, sess.CreatedBy, sess.CreatedAt,
	)
	if err != nil {
		// the unique index on offering_id arbitrates first-opener races
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return collab.Session{}, collab.ErrSessionExists
		}
		return collab.Session{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (repo *sessionRepository) UpsertPresence(ctx context.Context, pres collab.Presence) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO editor_presence (session_id, actor_id, actor_name, last_seen)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, actor_id)
		 DO UPDATE SET actor_name = EXCLUDED.actor_name, last_seen = EXCLUDED.last_seen`,
		pres.SessionID, pres.ActorID, pres.ActorName, pres.LastSeen,
	)
	if err != nil {
		return errors.Wrap(err, "upserting presence")
	}
	return nil
}

func (repo *sessionRepository) QueryPresence(ctx context.Context, sessionID uuid.UUID, since time.Time) ([]collab.Presence, error) {
	rows, err := repo.db.QueryxContext(ctx,
		`SELECT session_id, actor_id, actor_name, last_seen
		 FROM editor_presence WHERE session_id = $1 AND last_seen >= $2`,
		sessionID, since,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting presences")
	}
	defer func() { _ = rows.Close() }()

	var presences []collab.Presence
	for rows.Next() {
		var pres collab.Presence
		if err = rows.Scan(&pres.SessionID, &pres.ActorID, &pres.ActorName, &pres.LastSeen); err != nil {
			return nil, errors.Wrap(err, "scanning presence")
		}
		presences = append(presences, pres)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "selecting presences")
	}
	return presences, nil
}
