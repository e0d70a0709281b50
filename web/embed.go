package web

import "embed"

// DistFS contains the built web app. dist/ is populated by `npm run build`
// in the web/ directory.
//
//go:embed all:dist
var DistFS embed.FS
