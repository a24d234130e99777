package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSource reads a local file. Useful for testing a SharePoint target
// without a cloud store.
type FileSource struct {
	path string
}

// NewFileSource joins dir and name. An empty dir leaves name as given.
func NewFileSource(dir, name string) *FileSource {
	return &FileSource{path: filepath.Join(dir, name)}
}

func (s *FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("blob: %w", err)
	}

	return f, nil
}

func (s *FileSource) String() string {
	return "file://" + filepath.ToSlash(s.path)
}
