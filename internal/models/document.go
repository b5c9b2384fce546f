package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for aggregation buckets
const DateLayout = "2006-01-02"

// Document is one dated article to be scored against the signal corpus
type Document struct {
	ID        string    `json:"id"`
	Date      any       `json:"date"`
	Embedding []float32 `json:"embedding,omitempty"`

	// Optional source fields. Text is embedded when Embedding is missing.
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	Text  string `json:"text,omitempty"`
}

// dateFormatter matches values that render themselves with a layout string
type dateFormatter interface {
	Format(layout string) string
}

// FormatDate converts a document date into its bucket key.
// Strings are used as supplied; date-like values are rendered as YYYY-MM-DD and
// anything else falls back to its default string form. The bool is false when no date is present.
func FormatDate(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		return v.Format(DateLayout), true
	case *time.Time:
		if v == nil || v.IsZero() {
			return "", false
		}
		return v.Format(DateLayout), true
	case dateFormatter:
		if s := formatSafely(v); s != "" {
			return s, true
		}
	}

	s := strings.TrimSpace(fmt.Sprint(value))
	return s, s != ""
}

// formatSafely guards against formatters that panic on zero or nil receivers
func formatSafely(f dateFormatter) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	return strings.TrimSpace(f.Format(DateLayout))
}
