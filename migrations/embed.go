// Package migrations embeds the versioned SQL schema so the server and the
// migrate CLI ship it inside the binary.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql pair of the schema
//
//go:embed *.sql
var FS embed.FS
