package static

import "embed"

// FS exposes the admin dashboard assets for HTTP serving.
//
//go:embed *.html *.css *.js
var FS embed.FS
