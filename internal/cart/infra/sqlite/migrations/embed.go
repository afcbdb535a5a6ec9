package migrations

import "embed"

// FS contains embedded SQLite migrations for cart slot storage.
//
//go:embed *.sql
var FS embed.FS
