// Package documents loads the dated document source scored by the aggregator.
package documents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ternarybob/riskpulse/internal/models"
)

// Load reads a document source file.
// The file is either an object mapping id -> document or an array of documents carrying an "id".
func Load(path string) (map[string]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents %s: %w", path, err)
	}
	docs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("documents %s: %w", path, err)
	}
	return docs, nil
}

// Parse decodes a document source. Numeric dates keep their literal digits.
func Parse(data []byte) (map[string]models.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return map[string]models.Document{}, nil
	}

	if trimmed[0] == '[' {
		var list []models.Document
		if err := decode(trimmed, &list); err != nil {
			return nil, err
		}
		docs := make(map[string]models.Document, len(list))
		for i, doc := range list {
			if doc.ID == "" {
				return nil, fmt.Errorf("document %d has no id", i)
			}
			if _, dup := docs[doc.ID]; dup {
				return nil, fmt.Errorf("duplicate document id %q", doc.ID)
			}
			docs[doc.ID] = doc
		}
		return docs, nil
	}

	var byID map[string]models.Document
	if err := decode(trimmed, &byID); err != nil {
		return nil, err
	}
	docs := make(map[string]models.Document, len(byID))
	for id, doc := range byID {
		doc.ID = id
		docs[id] = doc
	}
	return docs, nil
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse documents: %w", err)
	}
	return nil
}
