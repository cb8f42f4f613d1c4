//go:build !dev

package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed templates static
var embeddedFiles embed.FS

// TemplateFS returns the page templates
func TemplateFS() fs.FS {
	fsys, err := fs.Sub(embeddedFiles, "templates")
	if err != nil {
		panic(err)
	}
	return fsys
}

// GetFileSystem returns the static assets as an http.FileSystem
func GetFileSystem() http.FileSystem {
	fsys, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(fsys)
}
