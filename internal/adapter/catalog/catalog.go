// Package catalog provides in-memory shelter catalogs loaded from YAML files,
// a remote JSON document, or the embedded Kanazawa default.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed kanazawa.yaml
var defaultCatalog []byte

// Static is a fixed shelter list. It implements shelter.Store.
type Static struct {
	shelters []domain.Shelter
}

// NewStatic wraps shelters, dropping entries without an ID or with
// out-of-range coordinates.
func NewStatic(shelters []domain.Shelter) *Static {
	kept := make([]domain.Shelter, 0, len(shelters))
	for _, s := range shelters {
		if s.ID == "" || !s.Position().Valid() {
			continue
		}
		kept = append(kept, s)
	}
	return &Static{shelters: kept}
}

func (s *Static) All(_ context.Context) ([]domain.Shelter, error) {
	out := make([]domain.Shelter, len(s.shelters))
	copy(out, s.shelters)
	return out, nil
}

// Len returns the number of shelters in the catalog.
func (s *Static) Len() int {
	return len(s.shelters)
}

// Default returns the embedded catalog of central Kanazawa shelters.
func Default() (*Static, error) {
	shelters, err := DecodeYAML(bytes.NewReader(defaultCatalog))
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return NewStatic(shelters), nil
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	shelters, err := DecodeYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewStatic(shelters), nil
}

// DecodeYAML reads a catalog document of the form "shelters: [...]".
func DecodeYAML(r io.Reader) ([]domain.Shelter, error) {
	var doc struct {
		Shelters []domain.Shelter `yaml:"shelters"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return doc.Shelters, nil
}

// EncodeYAML writes shelters in the catalog document format.
func EncodeYAML(w io.Writer, shelters []domain.Shelter) error {
	doc := struct {
		Shelters []domain.Shelter `yaml:"shelters"`
	}{Shelters: shelters}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}
