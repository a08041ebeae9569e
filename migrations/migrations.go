// Package migrations embeds the schema files applied at startup, so the
// binary carries its own schema and needs no migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
