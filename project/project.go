// Package project holds the default xlpipe project compiled into the binary.
package project

import (
	"embed"
	"io/fs"
)

// DefaultConfigFileName is the project file name looked for in the working directory.
const DefaultConfigFileName = "xlpipe.yaml"

//go:embed xlpipe.yaml models
var files embed.FS

// DefaultConfig returns the contents of the embedded xlpipe.yaml.
func DefaultConfig() []byte {
	b, err := files.ReadFile(DefaultConfigFileName)
	if err != nil {
		panic(err) // embedded at build time.
	}
	return b
}

// Models returns the embedded models directory.
func Models() fs.FS {
	sub, err := fs.Sub(files, "models")
	if err != nil {
		panic(err)
	}
	return sub
}
