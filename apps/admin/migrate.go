package main

import (
	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/storage/database"
)

func (cli *commandLine) createDB() error {
	if err := database.CreateIfNotExist(cli.conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

func (cli *commandLine) migrate() error {
	db, err := database.Open(cli.conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	return database.Migrate(db)
}
