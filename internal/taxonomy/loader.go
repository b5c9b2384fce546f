// Package taxonomy loads the category -> subcategory -> keywords risk taxonomy.
package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/riskpulse/internal/models"
)

// Format is the encoding of a taxonomy file
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension; anything but .yaml/.yml is JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and validates a taxonomy file
func Load(path string) (models.Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy %s: %w", path, err)
	}
	taxonomy, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("taxonomy %s: %w", path, err)
	}
	return taxonomy, nil
}

// Parse decodes and validates taxonomy data
func Parse(data []byte, format Format) (models.Taxonomy, error) {
	taxonomy := models.Taxonomy{}

	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &taxonomy)
	default:
		err = json.Unmarshal(data, &taxonomy)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}

	if err := Validate(taxonomy); err != nil {
		return nil, err
	}
	return taxonomy, nil
}

// Validate rejects blank category, subcategory or keyword names
func Validate(taxonomy models.Taxonomy) error {
	validate := validator.New()

	for category, subcategories := range taxonomy {
		if strings.TrimSpace(category) == "" {
			return fmt.Errorf("taxonomy has a blank category name")
		}
		for name, sub := range subcategories {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("category %q has a blank subcategory name", category)
			}
			for _, keyword := range sub.Keywords {
				if strings.TrimSpace(keyword) == "" {
					return fmt.Errorf("%s/%s has a blank keyword", category, name)
				}
			}
			if err := validate.Struct(sub); err != nil {
				return fmt.Errorf("%s/%s: %w", category, name, err)
			}
		}
	}
	return nil
}
