package main

import (
	"context"

	"github.com/pressly/goose/v3"
)

var gooseRunFunc = goose.RunContext // mockable

// migrate runs a goose command against the embedded migrations.
func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseRunFunc(ctx, args[0], cli.db, ".", args[1:]...)
}
