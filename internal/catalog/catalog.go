package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/common"
)

// File is the on-disk catalog document:
//
//	categories:
//	  - employer: AGRAM EMPLOYMENT D.O.O.
//	    folder: Agram
type File struct {
	Categories []Entry `yaml:"categories" json:"categories"`
}

type Entry struct {
	Employer string `yaml:"employer" json:"employer"`
	Folder   string `yaml:"folder" json:"folder"`
}

// Load reads the catalog at path. An empty path yields the built-in
// agency list.
func Load(path string) ([]constants.Category, error) {
	if strings.TrimSpace(path) == "" {
		return constants.DefaultCategories(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cats, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cats, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) ([]constants.Category, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, common.NewAppError("CATALOG_ERROR", "invalid yaml", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	// yaml.v3 decodes mappings as map[string]any, which round-trips through JSON
	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, common.NewAppError("CATALOG_ERROR", "catalog is not a plain mapping", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	if err := validateAgainstSchema(buildCatalogJSONSchema(), doc); err != nil {
		return nil, common.NewAppError("CATALOG_ERROR", "schema validation failed", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}

	var f File
	if err := json.Unmarshal(doc, &f); err != nil {
		return nil, common.NewAppError("CATALOG_ERROR", "decode catalog", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}

	seenEmployer := make(map[string]struct{}, len(f.Categories))
	seenFolder := make(map[string]struct{}, len(f.Categories))
	out := make([]constants.Category, 0, len(f.Categories))
	for _, e := range f.Categories {
		cat := constants.Category{
			Employer: strings.TrimSpace(e.Employer),
			Folder:   strings.TrimSpace(e.Folder),
		}
		ek, fk := strings.ToLower(cat.Employer), strings.ToLower(cat.Folder)
		if _, dup := seenEmployer[ek]; dup {
			return nil, common.NewAppError("CATALOG_ERROR", "duplicate employer "+cat.Employer, common.ErrInvalidInput)
		}
		if _, dup := seenFolder[fk]; dup {
			return nil, common.NewAppError("CATALOG_ERROR", "duplicate folder "+cat.Folder, common.ErrInvalidInput)
		}
		seenEmployer[ek] = struct{}{}
		seenFolder[fk] = struct{}{}
		out = append(out, cat)
	}
	return out, nil
}
