package changelog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var ctx = context.Background()

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// fakeRepo appends in memory; failWith makes AppendRecord fail.
type fakeRepo struct {
	records  []Record
	failWith error
}

var _ Repository = (*fakeRepo)(nil)

func (repo *fakeRepo) AppendRecord(_ context.Context, rec Record) error {
	if repo.failWith != nil {
		return repo.failWith
	}
	repo.records = append(repo.records, rec)
	return nil
}

func (repo *fakeRepo) ListRecords(_ context.Context, offeringID string, limit int) ([]Record, error) {
	out := make([]Record, 0, limit)
	for i := len(repo.records) - 1; i >= 0 && len(out) < limit; i-- {
		if repo.records[i].OfferingID == offeringID {
			out = append(out, repo.records[i])
		}
	}
	return out, nil
}

func mockNow(t *testing.T, now time.Time) {
	t.Helper()
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = time.Now })
}

func TestService_Record(t *testing.T) {
	now := time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC)
	mockNow(t, now)

	repo := &fakeRepo{}
	svc := NewService(repo, nopLogger{}, nil)

	svc.Record(ctx, Record{
		OfferingID: "off-1",
		ChangeType: Update,
		Path:       "topics[0].title",
		OldValue:   "Numbers",
		NewValue:   "Shapes",
		ActorID:    "usr-1",
		ActorName:  "Asha",
	})

	if len(repo.records) != 1 {
		t.Fatalf("records = %d, want 1", len(repo.records))
	}
	rec := repo.records[0]
	if rec.ID == uuid.Nil {
		t.Error("ID not assigned")
	}
	if !rec.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, now)
	}

	// caller-provided ID and timestamp are kept as-is
	id := uuid.New()
	at := now.Add(-time.Hour)
	svc.Record(ctx, Record{ID: id, OfferingID: "off-1", ChangeType: Create, Path: "topics[1]", CreatedAt: at})
	rec = repo.records[1]
	if rec.ID != id || !rec.CreatedAt.Equal(at) {
		t.Errorf("record = %+v, want ID %s at %v", rec, id, at)
	}
}

func TestService_Record_failureIsSwallowed(t *testing.T) {
	repo := &fakeRepo{failWith: errors.New("db down")}
	svc := NewService(repo, nopLogger{}, nil)

	// must not panic or block; the mutation that triggered the record
	// already succeeded and must stay committed
	svc.Record(ctx, Record{OfferingID: "off-1", ChangeType: Create, Path: "topics[0]"})

	if len(repo.records) != 0 {
		t.Errorf("records = %d, want 0", len(repo.records))
	}
}

func TestService_Record_perClientOrderIsPreserved(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nopLogger{}, nil)

	paths := []string{"topics[0]", "topics[0].title", "topics[1]"}
	for _, p := range paths {
		svc.Record(ctx, Record{OfferingID: "off-1", ChangeType: Update, Path: p, ActorID: "usr-1"})
	}

	for i, p := range paths {
		if repo.records[i].Path != p {
			t.Errorf("records[%d].Path = %q, want %q", i, repo.records[i].Path, p)
		}
	}
}

func TestService_History(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nopLogger{}, nil)

	for i := 0; i < 60; i++ {
		svc.Record(ctx, Record{OfferingID: "off-1", ChangeType: Create, Path: "topics[0]"})
	}
	svc.Record(ctx, Record{OfferingID: "off-2", ChangeType: Create, Path: "topics[0]"})

	recs, err := svc.History(ctx, "off-1", 10)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(recs) != 10 {
		t.Errorf("History(10) records = %d, want 10", len(recs))
	}

	// limit <= 0 falls back to the default page size
	recs, err = svc.History(ctx, "off-1", 0)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(recs) != defaultPageSize {
		t.Errorf("History(0) records = %d, want %d", len(recs), defaultPageSize)
	}
	for _, rec := range recs {
		if rec.OfferingID != "off-1" {
			t.Fatalf("History() leaked record for %s", rec.OfferingID)
		}
	}
}

func TestChangeType_Valid(t *testing.T) {
	for _, typ := range []ChangeType{Create, Update, Delete, Reorder} {
		if !typ.Valid() {
			t.Errorf("%s.Valid() = false", typ)
		}
	}
	if ChangeType("RENAME").Valid() {
		t.Error(`ChangeType("RENAME").Valid() = true`)
	}
}
