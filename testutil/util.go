package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/trezcool/mtaala/core/curriculum"
)

// Logger discards everything; keeps test output clean.
type Logger struct{}

func (Logger) Debug(string, ...interface{}) {}
func (Logger) Info(string, ...interface{})  {}
func (Logger) Warn(string, ...interface{})  {}
func (Logger) Error(string, ...interface{}) {}

// BuildDocument returns an in-memory document with the given shape; every
// topic gets `units` instructional units, each with one activity.
func BuildDocument(offeringID string, topics, units int) *curriculum.Document {
	doc := curriculum.NewDocument(offeringID)
	for t := 0; t < topics; t++ {
		ti := doc.AddTopic()
		doc.Topics[ti].Title = fmt.Sprintf("Topic %d", ti+1)
		for u := 0; u < units; u++ {
			ui, _ := doc.AddUnit(ti)
			doc.Topics[ti].Units[ui].Outcome = fmt.Sprintf("Outcome %s", doc.Topics[ti].Units[ui].SCONumber)
			ai, _ := doc.AddActivity(ti, ui)
			doc.Topics[ti].Units[ui].Activities[ai].Description = "Activity"
		}
	}
	return doc
}

// SeedDocument persists a built document through the given repository.
func SeedDocument(t *testing.T, repo curriculum.Repository, offeringID string, topics, units int) curriculum.Document {
	t.Helper()
	doc := BuildDocument(offeringID, topics, units)
	if err := repo.PutDocument(context.Background(), *doc); err != nil {
		t.Fatalf("SeedDocument() failed: %v", err)
	}
	return *doc
}
