package themes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
)

type registryFile struct {
	Themes []fileTheme `json:"themes" yaml:"themes"`
}

type fileTheme struct {
	ID       int      `json:"id" yaml:"id"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// FileSource reads themes from a YAML or JSON file on every call, so edits are
// picked up by the next refresh cycle.
type FileSource struct {
	path string
}

// NewFileSource checks that path is readable and returns a FileSource.
func NewFileSource(path string) (*FileSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("themes file path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat themes file: %w", err)
	}
	return &FileSource{path: path}, nil
}

// All returns the themes in file order.
func (f *FileSource) All(ctx context.Context) ([]domain.Theme, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(f.path)
}

// Exists reports whether id is declared in the file.
func (f *FileSource) Exists(ctx context.Context, id int) (bool, error) {
	return existsIn(ctx, f, id)
}

// Close is a no-op.
func (f *FileSource) Close() error { return nil }

// LoadFile parses a themes registry file.
func LoadFile(path string) ([]domain.Theme, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read themes file: %w", err)
	}
	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	list := make([]domain.Theme, len(reg.Themes))
	for i, t := range reg.Themes {
		list[i] = domain.Theme{ID: t.ID, Keywords: t.Keywords}
	}
	if err := validate(list); err != nil {
		return nil, err
	}
	return list, nil
}

type unmarshalFn func([]byte, any) error

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg registryFile
		if err := d.fn(data, &reg); err != nil {
			errs = append(errs, fmt.Errorf("decode %s themes: %w", d.name, err))
			continue
		}
		return reg, nil
	}
	if len(errs) > 0 {
		return registryFile{}, errors.Join(errs...)
	}
	return registryFile{}, errors.New("themes file format not recognized (expected YAML or JSON)")
}
