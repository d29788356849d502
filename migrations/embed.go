// Package migrations embeds the MySQL schema migrations so binaries can run
// them without a migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
