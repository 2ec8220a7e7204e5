package config

import (
	"fmt"
	"os"

	"tokenprices-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// catalogFile is the SYMBOLS_FILE layout:
//
//	symbols:
//	  BTC: {id: 1, base_price: 45000}
type catalogFile struct {
	Symbols map[string]domain.CatalogEntry `yaml:"symbols"`
}

// LoadCatalog returns the built-in catalog merged with entries from path.
// An empty path yields the built-in catalog.
func LoadCatalog(path string) (*domain.Catalog, error) {
	cat := domain.DefaultCatalog()
	if path == "" {
		return cat, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbols file: %w", err)
	}
	if err := MergeCatalog(cat, b); err != nil {
		return nil, err
	}
	return cat, nil
}

func MergeCatalog(cat *domain.Catalog, data []byte) error {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse symbols file: %w", err)
	}
	for sym, e := range f.Symbols {
		if e.ProviderID < 0 || e.BasePrice < 0 {
			return fmt.Errorf("symbols file: invalid entry for %s", sym)
		}
		cat.Set(sym, e)
	}
	return nil
}
