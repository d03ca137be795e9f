// Package appfs exposes build-time embedded assets (DB migrations).
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
