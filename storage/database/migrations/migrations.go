// Package migrations embeds the SQL migrations run by goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
