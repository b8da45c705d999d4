package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem is the file access used by the workspace: repository existence checks,
// settings and fleet documents, and generated build metadata.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	MkdirAll(path string, permissions fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// OSFileSystem implements FileSystem on the local disk.
type OSFileSystem struct{}

func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a sibling temporary file and renames it over path, so readers
// never observe a partially written settings or build info file.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) (writeError error) {
	directory, baseName := filepath.Split(path)
	if len(directory) == 0 {
		directory = "."
	}
	temporaryFile, createError := os.CreateTemp(directory, "."+baseName+".*")
	if createError != nil {
		return createError
	}
	temporaryPath := temporaryFile.Name()
	defer func() {
		if writeError != nil {
			_ = os.Remove(temporaryPath)
		}
	}()

	_, writeError = temporaryFile.Write(data)
	if chmodError := temporaryFile.Chmod(permissions); writeError == nil {
		writeError = chmodError
	}
	if closeError := temporaryFile.Close(); writeError == nil {
		writeError = closeError
	}
	if writeError != nil {
		return writeError
	}
	return os.Rename(temporaryPath, path)
}
