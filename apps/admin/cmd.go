package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/trezcool/mtaala/core"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf *core.Config
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createdb                    - create the app DB and user if missing")
	fmt.Println("  migrate                     - apply pending DB migrations")
	fmt.Println("  seeddoc -offering OFFERING  - seed a demo curriculum document")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedDocCmd := flag.NewFlagSet("seeddoc", flag.ExitOnError)
	seedDocOffering := seedDocCmd.String("offering", "", "The offering id to seed a document for.")

	switch args[1] {
	case "createdb":
		return cli.createDB()
	case "migrate":
		return cli.migrate()
	case "seeddoc":
		if err := seedDocCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedDocOffering == "" {
			seedDocCmd.Usage()
			return errHelp
		}
		return cli.seedDoc(*seedDocOffering)
	default:
		cli.printUsage()
		return errHelp
	}
}
