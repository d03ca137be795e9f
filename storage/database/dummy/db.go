package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/mtaala/core/changelog"
	"github.com/trezcool/mtaala/core/collab"
	"github.com/trezcool/mtaala/core/curriculum"
)

type (
	DB struct {
		document *documentTable
		session  *sessionTable
		change   *changeTable
	}

	documentTable struct {
		sync.RWMutex
		table map[string]*curriculum.Document // offeringID
	}

	sessionTable struct {
		sync.RWMutex
		table     map[string]*collab.Session // offeringID; map key is the uniqueness guarantee
		presences map[uuid.UUID]map[string]*collab.Presence
	}

	changeTable struct {
		sync.RWMutex
		table map[string][]changelog.Record // offeringID, append order
	}
)

func Open() (*DB, error) {
	db := &DB{
		document: &documentTable{table: make(map[string]*curriculum.Document)},
		session: &sessionTable{
			table:     make(map[string]*collab.Session),
			presences: make(map[uuid.UUID]map[string]*collab.Presence),
		},
		change: &changeTable{table: make(map[string][]changelog.Record)},
	}
	return db, nil
}
