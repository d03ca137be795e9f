package dummydb

import (
	"context"

	"github.com/trezcool/mtaala/core/changelog"
)

type changeRepository struct {
	db *changeTable
}

var _ changelog.Repository = (*changeRepository)(nil) // interface compliance check

func NewChangeRepository(db *DB) changelog.Repository {
	return &changeRepository{db: db.change}
}

func (repo *changeRepository) AppendRecord(_ context.Context, rec changelog.Record) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[rec.OfferingID] = append(repo.db.table[rec.OfferingID], rec)
	return nil
}

func (repo *changeRepository) ListRecords(_ context.Context, offeringID string, limit int) ([]changelog.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := repo.db.table[offeringID]
	if limit > len(all) {
		limit = len(all)
	}
	// newest first
	records := make([]changelog.Record, 0, limit)
	for i := len(all) - 1; i >= len(all)-limit; i-- {
		records = append(records, all[i])
	}
	return records, nil
}
