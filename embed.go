package invitengine

import "embed"

// templateAssets holds the built-in page templates: the default
// invitation layout and the admin pages.
//
//go:embed templates/*
var templateAssets embed.FS
