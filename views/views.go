// Package views holds the HTML templates served by the web form.
package views

import (
	"embed"
	"html/template"
)

//go:embed *.html
var FS embed.FS

func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(FS, "*.html"))
}
