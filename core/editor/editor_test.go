package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/changelog"
	"github.com/trezcool/mtaala/core/collab"
	"github.com/trezcool/mtaala/core/curriculum"
	dummydb "github.com/trezcool/mtaala/storage/database/dummy"
	"github.com/trezcool/mtaala/testutil"
)

var ctx = context.Background()

// hubBroadcaster fans published snapshots out to in-process subscribers,
// standing in for the real pub/sub broker.
type hubBroadcaster struct {
	mu            sync.Mutex
	subs          map[string][]chan curriculum.Document
	failSubscribe bool
}

var _ curriculum.Broadcaster = (*hubBroadcaster)(nil)

func newHub() *hubBroadcaster {
	return &hubBroadcaster{subs: make(map[string][]chan curriculum.Document)}
}

func (b *hubBroadcaster) Publish(_ context.Context, doc curriculum.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[doc.OfferingID] {
		select {
		case ch <- doc:
		default: // slow subscriber, drop
		}
	}
	return nil
}

func (b *hubBroadcaster) Subscribe(_ context.Context, offeringID string) (*curriculum.Subscription, error) {
	if b.failSubscribe {
		return nil, errors.New("broker unreachable")
	}
	ch := make(chan curriculum.Document, 10)
	b.mu.Lock()
	b.subs[offeringID] = append(b.subs[offeringID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs[offeringID] {
			if sub == ch {
				b.subs[offeringID] = append(b.subs[offeringID][:i], b.subs[offeringID][i+1:]...)
				close(ch)
				return
			}
		}
	}
	return curriculum.NewSubscription(ch, make(chan error), cancel), nil
}

type fixture struct {
	hub           *hubBroadcaster
	curriculumSvc *curriculum.Service
	collabSvc     *collab.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening dummy db: %v", err)
	}
	hub := newHub()
	changes := changelog.NewService(dummydb.NewChangeRepository(db), testutil.Logger{}, nil)
	return &fixture{
		hub:           hub,
		curriculumSvc: curriculum.NewService(dummydb.NewDocumentRepository(db), hub, changes, testutil.Logger{}),
		collabSvc:     collab.NewService(dummydb.NewSessionRepository(db), testutil.Logger{}, nil),
	}
}

func (f *fixture) openEditor(t *testing.T, actor core.Actor, onRemote func(curriculum.Document)) *Editor {
	t.Helper()
	e := New(Options{
		OfferingID:     "off-1",
		Actor:          actor,
		CurriculumSvc:  f.curriculumSvc,
		CollabSvc:      f.collabSvc,
		Broadcaster:    f.hub,
		Logger:         testutil.Logger{},
		OnRemoteUpdate: onRemote,
	})
	if err := e.Open(ctx); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEditor_Open_lazyCreate(t *testing.T) {
	f := newFixture(t)
	e := f.openEditor(t, core.Actor{ID: "usr-1", Name: "Asha"}, nil)

	// nothing saved yet; the local tree starts empty and the store stays empty
	doc := e.Document()
	if doc.OfferingID != "off-1" || len(doc.Topics) != 0 {
		t.Errorf("Document() = %+v", doc)
	}
	if _, err := f.curriculumSvc.Load(ctx, "off-1"); err != curriculum.ErrNotFound {
		t.Errorf("Load() error = %v, want ErrNotFound (nothing persisted before first save)", err)
	}

	// first save persists the lazily created document
	ti := e.AddTopic(ctx)
	if _, err := e.AddUnit(ctx, ti); err != nil {
		t.Fatalf("AddUnit() failed: %v", err)
	}
	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	stored, err := f.curriculumSvc.Load(ctx, "off-1")
	if err != nil {
		t.Fatalf("Load() after save failed: %v", err)
	}
	if len(stored.Topics) != 1 || stored.Topics[0].Units[0].SCONumber != "1.1" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestEditor_remoteSaveReplacesLocalTree(t *testing.T) {
	f := newFixture(t)
	asha := core.Actor{ID: "usr-1", Name: "Asha"}
	ben := core.Actor{ID: "usr-2", Name: "Ben"}

	remote := make(chan curriculum.Document, 4)
	a := f.openEditor(t, asha, nil)
	b := f.openEditor(t, ben, func(doc curriculum.Document) { remote <- doc })

	// Ben edits locally but does not save
	b.AddTopic(ctx)
	if err := b.UpdateField(ctx, "topics[0].title", "Unsaved draft"); err != nil {
		t.Fatalf("UpdateField() failed: %v", err)
	}

	// Asha saves her tree; Ben's local tree is replaced wholesale,
	// unsaved edits included
	a.AddTopic(ctx)
	a.AddTopic(ctx)
	if err := a.UpdateField(ctx, "topics[0].title", "Asha's topic"); err != nil {
		t.Fatalf("UpdateField() failed: %v", err)
	}
	if err := a.Save(ctx); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	select {
	case snap := <-remote:
		if snap.SavedBy != asha.ID {
			t.Errorf("snapshot SavedBy = %q, want %q", snap.SavedBy, asha.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("remote update never delivered")
	}

	doc := b.Document()
	if len(doc.Topics) != 2 || doc.Topics[0].Title != "Asha's topic" {
		t.Errorf("Ben's tree after remote save = %+v", doc)
	}
}

func TestEditor_ownSaveEchoIsDropped(t *testing.T) {
	f := newFixture(t)
	remote := make(chan curriculum.Document, 4)
	e := f.openEditor(t, core.Actor{ID: "usr-1", Name: "Asha"}, func(doc curriculum.Document) { remote <- doc })

	e.AddTopic(ctx)
	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	select {
	case doc := <-remote:
		t.Fatalf("own save echoed back as remote update: %+v", doc)
	case <-time.After(100 * time.Millisecond):
	}
	if doc := e.Document(); len(doc.Topics) != 1 {
		t.Errorf("Document() topics = %d, want 1", len(doc.Topics))
	}
}

func TestEditor_lastWriteWins(t *testing.T) {
	f := newFixture(t)
	asha := core.Actor{ID: "usr-1", Name: "Asha"}
	ben := core.Actor{ID: "usr-2", Name: "Ben"}

	remote := make(chan curriculum.Document, 4)
	a := f.openEditor(t, asha, func(doc curriculum.Document) { remote <- doc })
	b := f.openEditor(t, ben, nil)

	// both edit the same fresh document; Asha saves first, Ben saves last
	a.AddTopic(ctx)
	if err := a.UpdateField(ctx, "frontMatter.title", "Asha's version"); err != nil {
		t.Fatalf("UpdateField() failed: %v", err)
	}
	if err := a.Save(ctx); err != nil {
		t.Fatalf("Asha's Save() failed: %v", err)
	}

	b.AddTopic(ctx)
	b.AddTopic(ctx)
	if err := b.UpdateField(ctx, "frontMatter.title", "Ben's version"); err != nil {
		t.Fatalf("UpdateField() failed: %v", err)
	}
	if err := b.Save(ctx); err != nil {
		t.Fatalf("Ben's Save() failed: %v", err)
	}

	// Ben's whole snapshot replaced Asha's both in the store and on her screen
	stored, err := f.curriculumSvc.Load(ctx, "off-1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if stored.FrontMatter.Title != "Ben's version" || stored.SavedBy != ben.ID {
		t.Errorf("stored = %q by %q, want Ben's version", stored.FrontMatter.Title, stored.SavedBy)
	}

	select {
	case snap := <-remote:
		if snap.FrontMatter.Title != "Ben's version" {
			t.Errorf("Asha received %q, want Ben's version", snap.FrontMatter.Title)
		}
	case <-time.After(time.Second):
		t.Fatal("Asha never received Ben's save")
	}
	if doc := a.Document(); doc.FrontMatter.Title != "Ben's version" {
		t.Errorf("Asha's tree = %q, want Ben's version", doc.FrontMatter.Title)
	}
}

func TestEditor_collaborators(t *testing.T) {
	f := newFixture(t)
	a := f.openEditor(t, core.Actor{ID: "usr-1", Name: "Asha"}, nil)
	f.openEditor(t, core.Actor{ID: "usr-2", Name: "Ben"}, nil)

	got := a.Collaborators(ctx)
	if len(got) != 1 || got[0].ActorName != "Ben" {
		t.Errorf("Collaborators() = %+v, want [Ben]", got)
	}
}

func TestEditor_degradedSubscription(t *testing.T) {
	f := newFixture(t)
	f.hub.failSubscribe = true
	e := f.openEditor(t, core.Actor{ID: "usr-1", Name: "Asha"}, nil)

	// no live updates, but editing and saving still work
	e.AddTopic(ctx)
	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := f.curriculumSvc.Load(ctx, "off-1"); err != nil {
		t.Errorf("Load() failed: %v", err)
	}
}

func TestEditor_Close(t *testing.T) {
	f := newFixture(t)
	e := f.openEditor(t, core.Actor{ID: "usr-1", Name: "Asha"}, nil)

	e.Close()
	e.Close() // idempotent

	if err := e.Save(ctx); err != errClosed {
		t.Errorf("Save() after Close() error = %v, want errClosed", err)
	}
}
