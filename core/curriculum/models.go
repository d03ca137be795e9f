package curriculum

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// errors
	ErrNotFound        = errors.New("curriculum document not found")
	ErrIndexOutOfRange = errors.New("index out of range")
)

type (
	// FrontMatter holds the cover metadata of a curriculum document.
	FrontMatter struct {
		Title        string `json:"title"`
		Subject      string `json:"subject"`
		GradeLevel   string `json:"grade_level"`
		Introduction string `json:"introduction"`
	}

	// ResourceRef links a tree node to an externally-owned resource or template.
	// Only the reference is stored; the resource content lives in the library app.
	ResourceRef struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		URL   string `json:"url"`
		Type  string `json:"type"`
	}

	// Activity is a free-form leaf record. Its ID is assigned at creation and
	// never changes; order within its unit is insertion order only.
	Activity struct {
		ID          uuid.UUID     `json:"id"`
		Description string        `json:"description"`
		Duration    string        `json:"duration"`
		Materials   string        `json:"materials"`
		Objectives  string        `json:"objectives"`
		Resources   []ResourceRef `json:"resources,omitempty"`
	}

	// Unit is a numbered "Specific Curriculum Outcome" block within a topic.
	// Number and SCONumber are derived from tree positions; they are never set
	// independently.
	Unit struct {
		ID         uuid.UUID     `json:"id"`
		Number     int           `json:"unit_number"`
		SCONumber  string        `json:"sco_number"`
		Outcome    string        `json:"outcome"`
		Strategies string        `json:"strategies"`
		Activities []Activity    `json:"activities"`
		Resources  []ResourceRef `json:"resources,omitempty"`
	}

	// Topic is a top-level section of a curriculum document.
	Topic struct {
		ID        uuid.UUID     `json:"id"`
		Number    int           `json:"topic_number"`
		Title     string        `json:"title"`
		Outcomes  string        `json:"outcomes"`
		Units     []Unit        `json:"instructional_units"`
		Resources []ResourceRef `json:"resources,omitempty"`
	}

	// Document is the root aggregate; one per curriculum offering.
	// It is created lazily on first edit and replaced wholesale on every
	// successful save or broadcast receipt.
	Document struct {
		OfferingID  string      `json:"offering_id"`
		FrontMatter FrontMatter `json:"front_matter"`
		Topics      []Topic     `json:"topics"`
		SavedBy     string      `json:"saved_by,omitempty"`
		SavedAt     time.Time   `json:"saved_at,omitempty"`
	}
)

func NewDocument(offeringID string) *Document {
	return &Document{OfferingID: offeringID, Topics: make([]Topic, 0)}
}

// Renumber recomputes every derived number from the current tree shape:
// Topics[i].Number = i+1, Units[j].Number = j+1 and SCONumber = "topic.unit".
// It is idempotent and runs unconditionally after every structural change, so
// final numbering depends only on final tree shape, not on operation history.
func (doc *Document) Renumber() {
	for i := range doc.Topics {
		topic := &doc.Topics[i]
		topic.Number = i + 1
		for j := range topic.Units {
			unit := &topic.Units[j]
			unit.Number = j + 1
			unit.SCONumber = fmt.Sprintf("%d.%d", topic.Number, unit.Number)
		}
	}
}

// AddTopic appends a new empty topic and returns its index.
func (doc *Document) AddTopic() int {
	doc.Topics = append(doc.Topics, Topic{
		ID:    uuid.New(),
		Units: make([]Unit, 0),
	})
	doc.Renumber()
	return len(doc.Topics) - 1
}

// ReorderTopics moves the topic at `from` to position `to` with array move
// semantics: all topics between the two positions shift by one slot.
func (doc *Document) ReorderTopics(from, to int) error {
	if err := checkIndex(len(doc.Topics), from, to); err != nil {
		return err
	}
	moveTopic(doc.Topics, from, to)
	doc.Renumber()
	return nil
}

// DeleteTopic removes the topic at `i` and closes the numbering gap.
func (doc *Document) DeleteTopic(i int) error {
	if err := checkIndex(len(doc.Topics), i); err != nil {
		return err
	}
	doc.Topics = append(doc.Topics[:i], doc.Topics[i+1:]...)
	doc.Renumber()
	return nil
}

// AddUnit appends a new empty unit to the topic at `ti` and returns its index.
func (doc *Document) AddUnit(ti int) (int, error) {
	if err := checkIndex(len(doc.Topics), ti); err != nil {
		return 0, err
	}
	topic := &doc.Topics[ti]
	topic.Units = append(topic.Units, Unit{
		ID:         uuid.New(),
		Activities: make([]Activity, 0),
	})
	doc.Renumber()
	return len(topic.Units) - 1, nil
}

func (doc *Document) ReorderUnits(ti, from, to int) error {
	if err := checkIndex(len(doc.Topics), ti); err != nil {
		return err
	}
	topic := &doc.Topics[ti]
	if err := checkIndex(len(topic.Units), from, to); err != nil {
		return err
	}
	moveUnit(topic.Units, from, to)
	doc.Renumber()
	return nil
}

func (doc *Document) DeleteUnit(ti, i int) error {
	if err := checkIndex(len(doc.Topics), ti); err != nil {
		return err
	}
	topic := &doc.Topics[ti]
	if err := checkIndex(len(topic.Units), i); err != nil {
		return err
	}
	topic.Units = append(topic.Units[:i], topic.Units[i+1:]...)
	doc.Renumber()
	return nil
}

// AddActivity appends a new empty activity to the unit at (ti, ui) and returns
// its index. Activities carry no positional number; no renumbering happens.
func (doc *Document) AddActivity(ti, ui int) (int, error) {
	unit, err := doc.unit(ti, ui)
	if err != nil {
		return 0, err
	}
	unit.Activities = append(unit.Activities, Activity{ID: uuid.New()})
	return len(unit.Activities) - 1, nil
}

func (doc *Document) DeleteActivity(ti, ui, i int) error {
	unit, err := doc.unit(ti, ui)
	if err != nil {
		return err
	}
	if err := checkIndex(len(unit.Activities), i); err != nil {
		return err
	}
	unit.Activities = append(unit.Activities[:i], unit.Activities[i+1:]...)
	return nil
}

// Clone returns a deep copy of the document.
func (doc *Document) Clone() *Document {
	cp := *doc
	cp.Topics = make([]Topic, len(doc.Topics))
	for i, topic := range doc.Topics {
		t := topic
		t.Units = make([]Unit, len(topic.Units))
		t.Resources = cloneRefs(topic.Resources)
		for j, unit := range topic.Units {
			u := unit
			u.Activities = make([]Activity, len(unit.Activities))
			u.Resources = cloneRefs(unit.Resources)
			for k, act := range unit.Activities {
				a := act
				a.Resources = cloneRefs(act.Resources)
				u.Activities[k] = a
			}
			t.Units[j] = u
		}
		cp.Topics[i] = t
	}
	return &cp
}

func (doc *Document) unit(ti, ui int) (*Unit, error) {
	if err := checkIndex(len(doc.Topics), ti); err != nil {
		return nil, err
	}
	topic := &doc.Topics[ti]
	if err := checkIndex(len(topic.Units), ui); err != nil {
		return nil, err
	}
	return &topic.Units[ui], nil
}

func checkIndex(length int, idxs ...int) error {
	for _, i := range idxs {
		if i < 0 || i >= length {
			return ErrIndexOutOfRange
		}
	}
	return nil
}

func moveTopic(s []Topic, from, to int) {
	moved := s[from]
	if from < to {
		copy(s[from:to], s[from+1:to+1])
	} else {
		copy(s[to+1:from+1], s[to:from])
	}
	s[to] = moved
}

func moveUnit(s []Unit, from, to int) {
	moved := s[from]
	if from < to {
		copy(s[from:to], s[from+1:to+1])
	} else {
		copy(s[to+1:from+1], s[to:from])
	}
	s[to] = moved
}

func cloneRefs(refs []ResourceRef) []ResourceRef {
	if refs == nil {
		return nil
	}
	cp := make([]ResourceRef, len(refs))
	copy(cp, refs)
	return cp
}
