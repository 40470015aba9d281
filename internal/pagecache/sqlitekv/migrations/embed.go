package migrations

import "embed"

// FS contains embedded SQLite migrations for the page cache backend.
//
//go:embed *.sql
var FS embed.FS
