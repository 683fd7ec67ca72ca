package database

import _ "embed"

// Schema is the full up-to-date schema as one SQL script. Tests apply it
// directly to in-memory databases instead of running migrations.
//
//go:embed migrations/files/000001_init.up.sql
var Schema string
