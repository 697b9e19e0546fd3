// Package seed provides the sample CSV content uploaded to the object store
// the first time a table's backing object is requested.
package seed

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed sample_data/*.csv
var embedded embed.FS

// Embedded returns the built-in seed files, laid out as <schema>/<table>.csv.
func Embedded() fs.FS {
	return embedded
}

// Open returns the seed filesystem rooted at dir, or the embedded seed files
// when dir is empty.
func Open(dir string) fs.FS {
	if dir == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}
