package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
)

// Storage is the local file source for uploads. Files picked from disk are
// opened in place; files received over HTTP are staged under basePath first.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/staging"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// Select inspects a file on disk and returns it as an upload selection.
func (s *Storage) Select(_ context.Context, path string) (*domain.SelectedFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "select file", errors.New("path is required"))
	}
	return Inspect(path, filepath.Base(path))
}

// Stage copies data into the staging area under a unique name. The returned
// selection keeps the caller's filename.
func (s *Storage) Stage(_ context.Context, name string, data io.Reader) (*domain.SelectedFile, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "stage file", errors.New("filename is required"))
	}
	if err := checkExtension(name); err != nil {
		return nil, err
	}

	path := filepath.Join(s.basePath, uuid.NewString()+"-"+name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close file: %w", err)
	}

	file, err := Inspect(path, name)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return file, nil
}

func (s *Storage) Open(_ context.Context, file domain.SelectedFile) (io.ReadCloser, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Remove deletes a staged file. Files outside the staging area are left alone.
func (s *Storage) Remove(file domain.SelectedFile) error {
	base, err := filepath.Abs(s.basePath)
	if err != nil {
		return fmt.Errorf("resolve staging dir: %w", err)
	}
	path, err := filepath.Abs(file.Path)
	if err != nil {
		return fmt.Errorf("resolve file path: %w", err)
	}
	if filepath.Dir(path) != base {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}
