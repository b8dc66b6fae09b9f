// Package migrations embeds the SQL schema so the migrate binary ships without a directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
