package localstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ErrNotFound is returned by Open when no file exists at the path.
var ErrNotFound = errors.New("file not found")

// Store keeps resource files on a local or in-memory filesystem.
type Store struct {
	fs     afero.Fs
	logger zerolog.Logger
}

// New roots a store at dir on the OS filesystem.
func New(dir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return NewWithFs(afero.NewBasePathFs(afero.NewOsFs(), dir), logger), nil
}

// NewWithFs wraps an arbitrary afero filesystem.
func NewWithFs(fsys afero.Fs, logger zerolog.Logger) *Store {
	return &Store{
		fs:     fsys,
		logger: logger.With().Str("component", "localstore").Logger(),
	}
}

func (s *Store) Put(ctx context.Context, objectPath, contentType string, body io.Reader) error {
	name, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := s.fs.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(file, body); err != nil {
		_ = file.Close()
		_ = s.fs.Remove(name)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	s.logger.Debug().Str("path", name).Str("content_type", contentType).Msg("file stored")
	return nil
}

// Delete removes the file. A missing file counts as deleted.
func (s *Store) Delete(ctx context.Context, objectPath string) error {
	name, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *Store) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	name, err := cleanPath(objectPath)
	if err != nil {
		return nil, err
	}
	file, err := s.fs.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Exists reports whether a file is stored at the path.
func (s *Store) Exists(objectPath string) (bool, error) {
	name, err := cleanPath(objectPath)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, name)
}

func cleanPath(objectPath string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(objectPath))
	if clean == "/" {
		return "", fmt.Errorf("invalid path %q", objectPath)
	}
	return filepath.FromSlash(clean), nil
}
