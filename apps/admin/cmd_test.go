package main

import (
	"testing"

	"github.com/trezcool/mtaala/core"
)

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
}

func Test_commandLine_args(t *testing.T) {
	cli := &commandLine{conf: &core.Config{}}

	tests := []cliTest{
		{name: "no subcommand", args: []string{}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"lol"}, wantErr: errHelp},
		{name: "seeddoc: missing offering", args: []string{"seeddoc"}, wantErr: errHelp},
		{name: "seeddoc: empty offering", args: []string{"seeddoc", "-offering", ""}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
