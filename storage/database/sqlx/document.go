package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core/curriculum"
)

type documentRepository struct {
	db *sqlx.DB
}

var _ curriculum.Repository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(db *sqlx.DB) curriculum.Repository {
	return &documentRepository{db: db}
}

func (repo *documentRepository) GetDocument(ctx context.Context, offeringID string) (curriculum.Document, error) {
	var snapshot []byte
	err := repo.db.QueryRowxContext(ctx,
		`SELECT snapshot FROM curriculum_document WHERE offering_id = $1`,
		offeringID,
	).Scan(&snapshot)
	if err != nil {
		if err == sql.ErrNoRows {
			return curriculum.Document{}, curriculum.ErrNotFound
		}
		return curriculum.Document{}, errors.Wrap(err, "selecting document")
	}

	var doc curriculum.Document
	if err := json.Unmarshal(snapshot, &doc); err != nil {
		return curriculum.Document{}, errors.Wrap(err, "decoding snapshot")
	}
	return doc, nil
}

func (repo *documentRepository) PutDocument(ctx context.Context, doc curriculum.Document) error {
	snapshot, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}

	// whole-document replace; last write wins by design
	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO curriculum_document (offering_id, snapshot, saved_by, saved_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (offering_id)
		 DO UPDATE SET snapshot = EXCLUDED.snapshot, saved_by = EXCLUDED.saved_by, saved_at = EXCLUDED.saved_at`,
		doc.OfferingID, snapshot, doc.SavedBy, doc.SavedAt,
	)
	if err != nil {
		return errors.Wrap(err, "upserting document")
	}
	return nil
}
