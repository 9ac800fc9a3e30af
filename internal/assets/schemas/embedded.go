// Package schemasassets embeds the JSON schemas the CLI validates input
// against, so validation works from an installed binary.
package schemasassets

import _ "embed"

// JobFileSchema is the embedded job-file JSON schema.
//
//go:embed job-file.schema.json
var JobFileSchema []byte
