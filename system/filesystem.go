// Package system holds the boundary to the outside world: file systems, HTTP clients and logging.
package system

import (
	"io/fs"
	"os"
	"path/filepath"
)

// VirtualFS is the file system local documents are read from.
type VirtualFS interface {
	fs.FS
}

// WritableVirtualFS is a VirtualFS that can also write files.
type WritableVirtualFS interface {
	VirtualFS
	WriteFile(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
}

// FileSystem is the operating system file system.
type FileSystem struct{}

var _ WritableVirtualFS = (*FileSystem)(nil)

// Open opens name, which may be absolute or relative to the working directory.
func (fs *FileSystem) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// WriteFile writes data to name, creating missing parent directories.
func (fs *FileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	if err := fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	return os.WriteFile(name, data, perm)
}

func (fs *FileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}
