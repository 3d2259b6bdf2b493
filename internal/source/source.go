// Package source reads project files into memory.
package source

import (
	"fmt"
	"os"
)

// Source is the full text of one file.
type Source struct {
	Path string
	Text []byte
}

// SourceReadError reports a file that could not be read.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read source %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}

// Load reads the whole file at path.
func Load(path string) (Source, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return Source{}, &SourceReadError{Path: path, Err: err}
	}
	return Source{Path: path, Text: text}, nil
}
