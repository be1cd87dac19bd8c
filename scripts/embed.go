// Package scripts embeds the Risor report scripts shipped with nocode.
package scripts

import "embed"

// FS holds report/*.risor. Pass it to nocode.WithScriptsFS.
//
//go:embed report/*.risor
var FS embed.FS
