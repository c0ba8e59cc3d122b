// Package db carries the SQL schema applied on startup and by the admin CLI.
package db

import _ "embed"

//go:embed init.sql
var Schema string
