// Package scripts embeds copper's default Risor cops and their manifest.
package scripts

import "embed"

// Manifest is the path of the cop manifest within FS.
const Manifest = "cops.yml"

// FS holds cops.yml and the scripts it references.
//
//go:embed cops.yml cops/*.risor
var FS embed.FS
