package migrations

import "embed"

// Files holds the goose migrations for the users table.
//
//go:embed *.sql
var Files embed.FS
