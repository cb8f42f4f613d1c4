//go:build dev

package web

import (
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

var webDir string

func init() {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	// In development mode, use the actual directory
	webDir = filepath.Join(wd, "web")
}

// TemplateFS returns the page templates read from disk
func TemplateFS() fs.FS {
	return os.DirFS(filepath.Join(webDir, "templates"))
}

// GetFileSystem returns the static assets read from disk
func GetFileSystem() http.FileSystem {
	return http.Dir(filepath.Join(webDir, "static"))
}
