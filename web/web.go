// Package web embeds the built single-page frontend. Unknown paths fall
// back to index.html so the frontend handles its own routing.
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist
var assets embed.FS

// Assets returns the frontend file tree rooted at the build directory.
func Assets() fs.FS {
	sub, err := fs.Sub(assets, "dist")
	if err != nil {
		panic(err)
	}
	return sub
}
