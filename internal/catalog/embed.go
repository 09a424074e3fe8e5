package catalog

import (
	"embed"
	"io/fs"
)

//go:embed examples/*.yaml
var embeddedExamples embed.FS

// ExamplesFS returns the bundled example schemas.
func ExamplesFS() fs.FS {
	sub, err := fs.Sub(embeddedExamples, "examples")
	if err != nil {
		// The embed directive guarantees the subpath exists.
		panic(err)
	}
	return sub
}

// Examples returns a registry holding the bundled example schemas.
func Examples() (*Registry, error) {
	r := New()
	if err := r.LoadFS(ExamplesFS()); err != nil {
		return nil, err
	}
	return r, nil
}
