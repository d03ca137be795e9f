package main

import (
	"log"
	"os"

	"github.com/trezcool/mtaala/core"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatal(err)
	}

	cli := &commandLine{conf: conf}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			log.Fatal(err)
		}
		os.Exit(2)
	}
}
