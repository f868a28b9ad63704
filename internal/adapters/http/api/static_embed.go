package api

import (
	"embed"
	"html/template"
)

//go:embed static/dashboard.html
var staticFS embed.FS

var dashboardTemplate = template.Must(template.ParseFS(staticFS, "static/dashboard.html"))
