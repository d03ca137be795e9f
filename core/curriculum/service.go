package curriculum

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/changelog"
)

// nowFunc is mockable for tests.
var nowFunc = time.Now

type (
	Repository interface {
		// GetDocument returns ErrNotFound when no snapshot exists yet.
		GetDocument(ctx context.Context, offeringID string) (Document, error)
		// PutDocument replaces the whole snapshot keyed by offering id.
		PutDocument(ctx context.Context, doc Document) error
	}

	// Service applies tree mutations to a client-held document, records each
	// mutation to the change log and persists+broadcasts snapshots on save.
	// Mutations never touch the store; a document stays local until Save.
	Service struct {
		repo        Repository
		broadcaster Broadcaster
		changes     *changelog.Service
		logger      core.Logger
	}
)

func NewService(repo Repository, broadcaster Broadcaster, changes *changelog.Service, logger core.Logger) *Service {
	return &Service{
		repo:        repo,
		broadcaster: broadcaster,
		changes:     changes,
		logger:      logger,
	}
}

// Load fetches the latest saved snapshot. Returns ErrNotFound when the
// document has never been saved ("nothing to load"); the editor creates the
// document lazily on first edit in that case.
func (svc *Service) Load(ctx context.Context, offeringID string) (Document, error) {
	doc, err := svc.repo.GetDocument(ctx, offeringID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Document{}, ErrNotFound
		}
		return Document{}, errors.Wrap(err, "getting document")
	}
	return doc, nil
}

// Save persists the whole document as one snapshot, then publishes it to all
// other open clients. A persistence failure is returned to the acting user and
// nothing is broadcast; a broadcast failure degrades to "no live updates" and
// is only logged. Last full-document save wins: no version token is checked.
func (svc *Service) Save(ctx context.Context, doc Document, actor core.Actor) (Document, error) {
	doc.Renumber() // derived numbers depend only on final tree shape
	doc.SavedBy = actor.ID
	doc.SavedAt = nowFunc().UTC()

	if err := svc.repo.PutDocument(ctx, doc); err != nil {
		return Document{}, errors.Wrap(err, "putting document")
	}
	if err := svc.broadcaster.Publish(ctx, doc); err != nil {
		svc.logger.Warn("publishing snapshot", err, map[string]interface{}{"offering_id": doc.OfferingID})
	}
	return doc, nil
}

// History returns the most recent change records for an offering.
func (svc *Service) History(ctx context.Context, offeringID string, limit int) ([]changelog.Record, error) {
	return svc.changes.History(ctx, offeringID, limit)
}

// RecordChange appends a client-produced change record (fire-and-forget).
func (svc *Service) RecordChange(ctx context.Context, rec changelog.Record, actor core.Actor) {
	rec.ActorID = actor.ID
	rec.ActorName = actor.Name
	svc.changes.Record(ctx, rec)
}

// Tree mutations. Each one applies the pure tree operation, then records a
// change entry with the operation's type, path and before/after values.

func (svc *Service) AddTopic(ctx context.Context, doc *Document, actor core.Actor) int {
	i := doc.AddTopic()
	svc.record(ctx, doc, actor, changelog.Create, TopicPath(i), "", fmt.Sprintf("Topic %d", i+1), "added topic")
	return i
}

func (svc *Service) ReorderTopics(ctx context.Context, doc *Document, from, to int, actor core.Actor) error {
	if err := doc.ReorderTopics(from, to); err != nil {
		return err
	}
	svc.record(ctx, doc, actor, changelog.Reorder, TopicPath(to), strconv.Itoa(from), strconv.Itoa(to), "reordered topics")
	return nil
}

func (svc *Service) DeleteTopic(ctx context.Context, doc *Document, i int, actor core.Actor) error {
	if err := checkIndex(len(doc.Topics), i); err != nil {
		return err
	}
	old := doc.Topics[i].Title
	if err := doc.DeleteTopic(i); err != nil {
		return err
	}
	svc.record(ctx, doc, actor, changelog.Delete, TopicPath(i), old, "", "deleted topic")
	return nil
}

func (svc *Service) AddUnit(ctx context.Context, doc *Document, ti int, actor core.Actor) (int, error) {
	i, err := doc.AddUnit(ti)
	if err != nil {
		return 0, err
	}
	unit := doc.Topics[ti].Units[i]
	svc.record(ctx, doc, actor, changelog.Create, UnitPath(ti, i), "", unit.SCONumber, "added instructional unit")
	return i, nil
}

func (svc *Service) ReorderUnits(ctx context.Context, doc *Document, ti, from, to int, actor core.Actor) error {
	if err := doc.ReorderUnits(ti, from, to); err != nil {
		return err
	}
	svc.record(ctx, doc, actor, changelog.Reorder, UnitPath(ti, to), strconv.Itoa(from), strconv.Itoa(to), "reordered instructional units")
	return nil
}

func (svc *Service) DeleteUnit(ctx context.Context, doc *Document, ti, i int, actor core.Actor) error {
	unit, err := doc.unit(ti, i)
	if err != nil {
		return err
	}
	old := unit.SCONumber
	if err := doc.DeleteUnit(ti, i); err != nil {
		return err
	}
	svc.record(ctx, doc, actor, changelog.Delete, UnitPath(ti, i), old, "", "deleted instructional unit")
	return nil
}

func (svc *Service) AddActivity(ctx context.Context, doc *Document, ti, ui int, actor core.Actor) (int, error) {
	i, err := doc.AddActivity(ti, ui)
	if err != nil {
		return 0, err
	}
	svc.record(ctx, doc, actor, changelog.Create, ActivityPath(ti, ui, i), "", "", "added activity")
	return i, nil
}

func (svc *Service) DeleteActivity(ctx context.Context, doc *Document, ti, ui, i int, actor core.Actor) error {
	unit, err := doc.unit(ti, ui)
	if err != nil {
		return err
	}
	if err := checkIndex(len(unit.Activities), i); err != nil {
		return err
	}
	old := unit.Activities[i].Description
	if err := doc.DeleteActivity(ti, ui, i); err != nil {
		return err
	}
	svc.record(ctx, doc, actor, changelog.Delete, ActivityPath(ti, ui, i), old, "", "deleted activity")
	return nil
}

func (svc *Service) UpdateField(ctx context.Context, doc *Document, path, value string, actor core.Actor) error {
	old, err := doc.UpdateField(path, value)
	if err != nil {
		return err
	}
	p, _ := ParsePath(path)
	svc.record(ctx, doc, actor, changelog.Update, p, old, value, "updated "+p.Field)
	return nil
}

func (svc *Service) AttachResource(ctx context.Context, doc *Document, path string, ref ResourceRef, actor core.Actor) error {
	if err := doc.AttachResource(path, ref); err != nil {
		return err
	}
	p, _ := ParsePath(path)
	svc.record(ctx, doc, actor, changelog.Update, p, "", ref.ID, "attached resource "+ref.Title)
	return nil
}

func (svc *Service) InsertSuggestion(ctx context.Context, doc *Document, path string, sugg Suggestion, actor core.Actor) (Path, error) {
	p, err := doc.InsertSuggestion(path, sugg)
	if err != nil {
		return Path{}, err
	}
	svc.record(ctx, doc, actor, changelog.Create, p, "", sugg.Title, "inserted suggested content")
	return p, nil
}

func (svc *Service) record(ctx context.Context, doc *Document, actor core.Actor, typ changelog.ChangeType, path Path, old, val, desc string) {
	svc.changes.Record(ctx, changelog.Record{
		OfferingID:  doc.OfferingID,
		ChangeType:  typ,
		Path:        path.String(),
		OldValue:    old,
		NewValue:    val,
		Description: desc,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
	})
}
