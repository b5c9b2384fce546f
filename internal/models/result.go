package models

// DocumentCounts holds the number of distinct documents that matched each label
type DocumentCounts struct {
	Category    map[string]int `json:"category"`
	Subcategory map[string]int `json:"subcategory"`
	Keyword     map[string]int `json:"keyword"`
}

// AggregationResult is the normalized output of one scoring pass.
// Every score lies in [0, 100]; the four score families are the stable reporting contract.
type AggregationResult struct {
	TotalByDate       map[string]float64            `json:"total_by_date"`
	CategoryByDate    map[string]map[string]float64 `json:"category_by_date"`
	SubcategoryByDate map[string]map[string]float64 `json:"subcategory_by_date"`
	KeywordByDate     map[string]map[string]float64 `json:"keyword_by_date"`

	DocumentCounts DocumentCounts `json:"document_counts"`
	Matched        int            `json:"matched_documents"`
	Skipped        int            `json:"skipped_documents"`
}

// NewAggregationResult returns a result with every family initialised and empty
func NewAggregationResult() *AggregationResult {
	return &AggregationResult{
		TotalByDate:       make(map[string]float64),
		CategoryByDate:    make(map[string]map[string]float64),
		SubcategoryByDate: make(map[string]map[string]float64),
		KeywordByDate:     make(map[string]map[string]float64),
		DocumentCounts: DocumentCounts{
			Category:    make(map[string]int),
			Subcategory: make(map[string]int),
			Keyword:     make(map[string]int),
		},
	}
}

// IsEmpty reports whether no document contributed to the result
func (r *AggregationResult) IsEmpty() bool {
	return len(r.TotalByDate) == 0
}
