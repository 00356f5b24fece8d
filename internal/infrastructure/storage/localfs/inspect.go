package localfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
)

// Inspect checks that path holds a readable PDF and returns it as a
// selection named name.
func Inspect(path, name string) (*domain.SelectedFile, error) {
	if err := checkExtension(name); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "inspect file", fmt.Errorf("%s is a directory", name))
	}

	pages, err := countPages(f, info.Size())
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "inspect file", fmt.Errorf("%s is not a readable PDF: %w", name, err))
	}

	return &domain.SelectedFile{
		Name:  name,
		Path:  path,
		Size:  info.Size(),
		Pages: pages,
	}, nil
}

func countPages(f *os.File, size int64) (pages int, err error) {
	// The parser panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(f, size)
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

func checkExtension(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return domain.WrapError(domain.ErrInvalidInput, "select file", errors.New("only PDF files are supported"))
	}
	return nil
}
