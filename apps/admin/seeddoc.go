package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core/curriculum"
	"github.com/trezcool/mtaala/storage/database"
	sqlxrepos "github.com/trezcool/mtaala/storage/database/sqlx"
)

// seedDoc writes a small demo curriculum document for local development.
func (cli *commandLine) seedDoc(offeringID string) error {
	db, err := database.Open(cli.conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	doc := curriculum.NewDocument(offeringID)
	doc.FrontMatter = curriculum.FrontMatter{
		Title:        "Demo Curriculum",
		Subject:      "Mathematics",
		GradeLevel:   "7",
		Introduction: "Seeded for local development.",
	}
	for t := 0; t < 2; t++ {
		ti := doc.AddTopic()
		doc.Topics[ti].Title = fmt.Sprintf("Topic %d", ti+1)
		for u := 0; u < 2; u++ {
			ui, _ := doc.AddUnit(ti)
			doc.Topics[ti].Units[ui].Outcome = fmt.Sprintf("Outcome %s", doc.Topics[ti].Units[ui].SCONumber)
			ai, _ := doc.AddActivity(ti, ui)
			doc.Topics[ti].Units[ui].Activities[ai].Description = "Warm-up exercise"
		}
	}

	repo := sqlxrepos.NewDocumentRepository(db)
	if err := repo.PutDocument(context.Background(), *doc); err != nil {
		return errors.Wrap(err, "seeding document")
	}
	fmt.Printf("seeded document for offering %q\n", offeringID)
	return nil
}
