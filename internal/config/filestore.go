package config

import (
	"os"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

// FileStore persists the profile document as a single file.
type FileStore struct {
	Path string
}

// Load returns the stored bytes. A missing file yields nil and no error.
func (f FileStore) Load() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read %s", f.Path)
	}
	return data, nil
}

// Store replaces the file. On failure the previous file is left intact.
func (f FileStore) Store(data []byte) error {
	return writeFileAtomic(f.Path, data)
}
