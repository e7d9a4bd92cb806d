package migrations

import "embed"

// FS contains embedded SQLite migrations for metrics storage.
//
//go:embed *.sql
var FS embed.FS
