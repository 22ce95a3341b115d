// Package web embeds the dashboard UI for serving from the Go binary.
//
// The static/ directory holds a dependency-free single page app that is
// embedded at compile-time using go:embed.
//
// Usage in the API server:
//
//	import "github.com/newspulse-ai/newspulse/web"
//	fs := web.StaticFS()  // returns io/fs.FS rooted at static/
package web

import (
	"embed"
	"io/fs"
	"log"
)

//go:embed all:static
var static embed.FS

// StaticFS returns a filesystem rooted at the embedded static/ directory.
// This is ready to use with http.FileServerFS or http.FS.
func StaticFS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		log.Fatalf("web.StaticFS: %v", err)
	}
	return sub
}
