// Package editor models one open client of the collaborative curriculum
// editor: a local document tree mutated synchronously, a presence heartbeat,
// and a snapshot subscription that replaces the local tree wholesale whenever
// another client saves. There is no merging; last full-document save wins.
package editor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/changelog"
	"github.com/trezcool/mtaala/core/collab"
	"github.com/trezcool/mtaala/core/curriculum"
)

var errClosed = errors.New("editor is closed")

type (
	Options struct {
		OfferingID    string
		Actor         core.Actor
		CurriculumSvc *curriculum.Service
		CollabSvc     *collab.Service
		Broadcaster   curriculum.Broadcaster
		Logger        core.Logger

		// OnSave fires after a successful save.
		OnSave func(curriculum.Document)
		// OnRemoteUpdate fires after the local tree has been replaced by a
		// snapshot another client saved.
		OnRemoteUpdate func(curriculum.Document)
	}

	Editor struct {
		opts Options

		mu            sync.Mutex
		doc           *curriculum.Document
		session       collab.Session
		sub           *curriculum.Subscription
		stopHeartbeat func()
		lastSavedAt   time.Time
		opened        bool
		closed        bool
	}
)

func New(opts Options) *Editor {
	return &Editor{opts: opts}
}

// Open loads the document (creating an empty one locally when it has never
// been saved), joins the editing session, starts the heartbeat and subscribes
// to remote snapshots. Collaboration failures degrade silently; only a
// document-load failure is returned.
func (e *Editor) Open(ctx context.Context) error {
	doc, err := e.opts.CurriculumSvc.Load(ctx, e.opts.OfferingID)
	if err != nil {
		if errors.Cause(err) != curriculum.ErrNotFound {
			return errors.Wrap(err, "loading document")
		}
		doc = *curriculum.NewDocument(e.opts.OfferingID) // lazy first-edit creation
	}

	// session/presence: non-fatal; a zero session means degraded mode
	sess, _ := e.opts.CollabSvc.Open(ctx, e.opts.OfferingID, e.opts.Actor)
	var stopHB func()
	if !sess.IsZero() {
		stopHB = e.opts.CollabSvc.StartHeartbeat(ctx, sess.ID, e.opts.Actor)
	}

	// live updates: non-fatal; editing and saving still work without them
	sub, err := e.opts.Broadcaster.Subscribe(ctx, e.opts.OfferingID)
	if err != nil {
		e.opts.Logger.Warn("subscribing to snapshots", err, map[string]interface{}{"offering_id": e.opts.OfferingID})
		sub = nil
	}

	e.mu.Lock()
	e.doc = &doc
	e.session = sess
	e.sub = sub
	e.stopHeartbeat = stopHB
	e.opened = true
	e.mu.Unlock()

	if sub != nil {
		go e.dispatch(sub)
	}
	return nil
}

// dispatch replaces the local tree with every remote snapshot received.
// A snapshot echoing our own save is dropped; everything else is applied
// unconditionally, unsaved local edits included.
func (e *Editor) dispatch(sub *curriculum.Subscription) {
	for {
		select {
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			e.applyRemote(snap)
		case err, ok := <-sub.Err():
			if !ok {
				return
			}
			e.opts.Logger.Warn("snapshot subscription", err, map[string]interface{}{"offering_id": e.opts.OfferingID})
		}
	}
}

func (e *Editor) applyRemote(snap curriculum.Document) {
	e.mu.Lock()
	if e.closed || snap.OfferingID != e.opts.OfferingID {
		e.mu.Unlock()
		return
	}
	if snap.SavedBy == e.opts.Actor.ID && snap.SavedAt.Equal(e.lastSavedAt) {
		e.mu.Unlock() // our own save echoed back
		return
	}
	e.doc = snap.Clone()
	cb := e.opts.OnRemoteUpdate
	cp := *e.doc.Clone()
	e.mu.Unlock()

	if cb != nil {
		cb(cp)
	}
}

// Document returns a deep copy of the current local tree.
func (e *Editor) Document() curriculum.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.doc.Clone()
}

// Session returns the editing session joined at Open (zero in degraded mode).
func (e *Editor) Session() collab.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Collaborators returns the other current editors of this document.
func (e *Editor) Collaborators(ctx context.Context) []collab.Presence {
	e.mu.Lock()
	sessID := e.session.ID
	e.mu.Unlock()
	return e.opts.CollabSvc.Collaborators(ctx, sessID, e.opts.Actor)
}

// Save persists and broadcasts the current local tree. On failure the local
// tree is left untouched and remains authoritative until the user retries.
// A save still in flight when the editor closes has its result discarded.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errClosed
	}
	snapshot := *e.doc.Clone()
	e.mu.Unlock()

	saved, err := e.opts.CurriculumSvc.Save(ctx, snapshot, e.opts.Actor)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock() // session ended mid-save; discard the result
		return nil
	}
	e.doc = saved.Clone()
	e.lastSavedAt = saved.SavedAt
	cb := e.opts.OnSave
	e.mu.Unlock()

	if cb != nil {
		cb(saved)
	}
	return nil
}

// History returns the most recent change records for this document.
func (e *Editor) History(ctx context.Context, limit int) ([]changelog.Record, error) {
	return e.opts.CurriculumSvc.History(ctx, e.opts.OfferingID, limit)
}

// Close cancels the heartbeat and unsubscribes from snapshots. Idempotent.
func (e *Editor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	stopHB, sub := e.stopHeartbeat, e.sub
	e.mu.Unlock()

	if stopHB != nil {
		stopHB()
	}
	if sub != nil {
		_ = sub.Close()
	}
}

// Tree mutations: synchronous against local memory, applied strictly in call
// order; each one is recorded to the change log by the curriculum service.

func (e *Editor) AddTopic(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.CurriculumSvc.AddTopic(ctx, e.doc, e.opts.Actor)
}

func (e *Editor) ReorderTopics(ctx context.Context, from, to int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.CurriculumSvc.ReorderTopics(ctx, e.doc, from, to, e.opts.Actor)
}

func (e *Editor) DeleteTopic(ctx context.Context, i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.CurriculumSvc.DeleteTopic(ctx, e.doc, i, e.opts.Actor)
}

func (e *Editor) AddUnit(ctx context.Context, ti int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.CurriculumSvc.AddUnit(ctx, e.doc, ti, e.opts.Actor)
}

func (e *Editor) ReorderUnits(ctx context.Context, ti, from, to int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.CurriculumSvc.ReorderUnits(ctx, e.doc, ti, from, to, e.opts.Actor)
}

func (e *Editor) DeleteUnit(ctx context.Context, ti, i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.CurriculumSvc.DeleteUnit(ctx, e.doc, ti, i, e.opts.Actor)
}

func (e *Editor) AddActivity(ctx context.Context, ti, ui int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.CurriculumSvc.AddActivity(ctx, e.doc, ti, ui, e.opts.Actor)
}

func (e *Editor) DeleteActivity(ctx context.Context, ti, ui, i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.CurriculumSvc.DeleteActivity(ctx, e.doc, ti, ui, i, e.opts.Actor)
}

func (e *Editor) UpdateField(ctx context.Context, path, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.CurriculumSvc.UpdateField(ctx, e.doc, path, value, e.opts.Actor)
}

func (e *Editor) AttachResource(ctx context.Context, path string, ref curriculum.ResourceRef) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.CurriculumSvc.AttachResource(ctx, e.doc, path, ref, e.opts.Actor)
}

func (e *Editor) InsertSuggestion(ctx context.Context, path string, sugg curriculum.Suggestion) (curriculum.Path, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.CurriculumSvc.InsertSuggestion(ctx, e.doc, path, sugg, e.opts.Actor)
}
