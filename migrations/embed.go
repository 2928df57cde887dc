// Package migrations embeds the SQL schema migrations.
//
// Files are named NNN_description.sql and numbered from 001 without gaps.
// Each holds the forward SQL, then a "---- create above / drop below ----"
// line, then the rollback SQL. db.Migrate applies them with tern.
package migrations

import "embed"

// FS holds every migration file.
//
//go:embed *.sql
var FS embed.FS
