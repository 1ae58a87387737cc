package migrations

import "embed"

// FS contains embedded SQLite migrations for support storage.
//
//go:embed *.sql
var FS embed.FS
