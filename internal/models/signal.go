package models

// TaxonomyLeaf identifies one keyword position in the risk taxonomy
type TaxonomyLeaf struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Keyword     string `json:"keyword"`
}

// String returns the slash-joined taxonomy path
func (l TaxonomyLeaf) String() string {
	return l.Category + "/" + l.Subcategory + "/" + l.Keyword
}

// PhraseWeight is one weighted phrase returned by a phrase generator
type PhraseWeight struct {
	Phrase string  `json:"bigram"`
	Weight float64 `json:"weight"`
}

// SignalEntry is a weighted, embedded phrase linked to the taxonomy leaf that produced it.
// Entries that share a phrase share the same Vector slice; treat it as read-only.
type SignalEntry struct {
	Phrase      string    `json:"bigram"`
	Vector      []float32 `json:"embedding"`
	Weight      float64   `json:"weight"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	Keyword     string    `json:"keyword"`
}
