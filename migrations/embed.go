// Package migrations embeds the service's SQL schema.
package migrations

import "embed"

// FS holds every *.up.sql file, applied in filename order.
//
//go:embed *.up.sql
var FS embed.FS
