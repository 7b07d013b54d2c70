package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/catalogmatch/backend/internal/domain"
)

// seedFile is the on-disk shape of a catalog seed
type seedFile struct {
	Items []domain.CatalogItem `json:"items" yaml:"items"`
}

// LoadSeedFile reads a YAML (.yaml, .yml) or JSON catalog seed and validates every item
func LoadSeedFile(path string) ([]domain.CatalogItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeSeed(f, "yaml")
	default:
		return DecodeSeed(f, "json")
	}
}

// DecodeSeed decodes a seed document in the given format ("yaml" or "json").
// Duplicate ids are rejected.
func DecodeSeed(r io.Reader, format string) ([]domain.CatalogItem, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	var seed seedFile
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&seed); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml seed: %w", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&seed); err != nil {
			return nil, fmt.Errorf("decode json seed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported seed format %q", format)
	}

	seen := make(map[string]bool, len(seed.Items))
	for i := range seed.Items {
		item := &seed.Items[i]
		item.ID = strings.TrimSpace(item.ID)
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("seed item %d: %w", i, err)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("seed item %d: %w: duplicate id %s", i, domain.ErrInvalidCatalogItem, item.ID)
		}
		seen[item.ID] = true
	}
	return seed.Items, nil
}
