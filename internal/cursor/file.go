package cursor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is the cursor file name inside the temp directory
const DefaultFileName = "siem-client.run"

// DefaultPath returns the default cursor file location
func DefaultPath() string {
	return filepath.Join(os.TempDir(), DefaultFileName)
}

// FileStore keeps the cursor in a plain-text file holding one URL
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path. An empty path selects
// DefaultPath.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath()
	}
	return &FileStore{path: path}
}

// Path returns the cursor file path
func (s *FileStore) Path() string {
	return s.path
}

// Location implements Store
func (s *FileStore) Location() string {
	return "file://" + s.path
}

// Load implements Store. A missing file yields an empty cursor.
func (s *FileStore) Load(ctx context.Context) (Cursor, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading cursor file %s: %w", s.path, err)
	}
	return Cursor(strings.TrimSpace(string(data))), nil
}

// Save implements Store. The file is replaced through a rename so readers
// never observe a partial write.
func (s *FileStore) Save(ctx context.Context, c Cursor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cursor directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cursor file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(c.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cursor file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting cursor file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cursor file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing cursor file %s: %w", s.path, err)
	}
	return nil
}

// Clear implements Store
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing cursor file %s: %w", s.path, err)
	}
	return nil
}
