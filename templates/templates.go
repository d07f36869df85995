// Package templates embeds the HTML templates for the web UI.
package templates

import "embed"

//go:embed layouts partials pages
var FS embed.FS
