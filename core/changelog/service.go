package changelog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/mtaala/core"
)

const defaultPageSize = 50

// nowFunc is mockable for tests.
var nowFunc = time.Now

type (
	Repository interface {
		AppendRecord(ctx context.Context, rec Record) error
		// ListRecords returns the most recent records first.
		ListRecords(ctx context.Context, offeringID string, limit int) ([]Record, error)
	}

	Service struct {
		repo     Repository
		logger   core.Logger
		pageSize int
	}
)

func NewService(repo Repository, logger core.Logger, conf *core.Config) *Service {
	pageSize := defaultPageSize
	if conf != nil && conf.Collab.ChangeLogPageSize > 0 {
		pageSize = conf.Collab.ChangeLogPageSize
	}
	return &Service{repo: repo, logger: logger, pageSize: pageSize}
}

// Record appends an audit-trail entry for a tree mutation. It is
// fire-and-forget: failures are logged and swallowed so they never block,
// delay or roll back the triggering mutation.
func (svc *Service) Record(ctx context.Context, rec Record) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = nowFunc().UTC()
	}
	if err := svc.repo.AppendRecord(ctx, rec); err != nil {
		svc.logger.Warn("appending change record", err, map[string]interface{}{
			"offering_id": rec.OfferingID,
			"change_type": rec.ChangeType,
			"path":        rec.Path,
		})
	}
}

// History returns the most recent records in reverse-chronological order.
// limit <= 0 falls back to the configured page size.
func (svc *Service) History(ctx context.Context, offeringID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = svc.pageSize
	}
	return svc.repo.ListRecords(ctx, offeringID, limit)
}
