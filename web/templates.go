package web

import "html/template"

// Templates parses every page template
func Templates() (*template.Template, error) {
	return template.ParseFS(TemplateFS(), "*.html")
}
