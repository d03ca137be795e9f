package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core/changelog"
)

type changeRepository struct {
	db *sqlx.DB
}

var _ changelog.Repository = (*changeRepository)(nil) // interface compliance check

func NewChangeRepository(db *sqlx.DB) changelog.Repository {
	return &changeRepository{db: db}
}

func (repo *changeRepository) AppendRecord(ctx context.Context, rec changelog.Record) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO change_record
		 (id, offering_id, change_type, path, old_value, new_value, description, actor_id, actor_name, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.OfferingID, string(rec.ChangeType), rec.Path,
		rec.OldValue, rec.NewValue, rec.Description, rec.ActorID, rec.ActorName, rec.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "inserting change record")
	}
	return nil
}

func (repo *changeRepository) ListRecords(ctx context.Context, offeringID string, limit int) ([]changelog.Record, error) {
	rows, err := repo.db.QueryxContext(ctx,
		`SELECT id, offering_id, change_type, path, old_value, new_value, description, actor_id, actor_name, created_at
		 FROM change_record WHERE offering_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		offeringID, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting change records")
	}
	defer func() { _ = rows.Close() }()

	var records []changelog.Record
	for rows.Next() {
		var rec changelog.Record
		var typ string
		if err = rows.Scan(
			&rec.ID, &rec.OfferingID, &typ, &rec.Path,
			&rec.OldValue, &rec.NewValue, &rec.Description, &rec.ActorID, &rec.ActorName, &rec.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scanning change record")
		}
		rec.ChangeType = changelog.ChangeType(typ)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "selecting change records")
	}
	return records, nil
}
