package dummydb

import (
	"context"

	"github.com/trezcool/mtaala/core/curriculum"
)

type documentRepository struct {
	db *documentTable
}

var _ curriculum.Repository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(db *DB) curriculum.Repository {
	return &documentRepository{db: db.document}
}

func (repo *documentRepository) GetDocument(_ context.Context, offeringID string) (curriculum.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if doc, ok := repo.db.table[offeringID]; ok {
		return *doc.Clone(), nil
	}
	return curriculum.Document{}, curriculum.ErrNotFound
}

func (repo *documentRepository) PutDocument(_ context.Context, doc curriculum.Document) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[doc.OfferingID] = doc.Clone()
	return nil
}
