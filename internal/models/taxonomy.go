package models

import "sort"

// Subcategory holds the keywords of one taxonomy subcategory
type Subcategory struct {
	Keywords []string `json:"keywords" yaml:"keywords" validate:"dive,required"`
}

// Taxonomy maps category -> subcategory -> keywords
type Taxonomy map[string]map[string]Subcategory

// Leaves enumerates every (category, subcategory, keyword) triple.
// Categories and subcategories are visited in sorted order, keywords in declaration order.
func (t Taxonomy) Leaves() []TaxonomyLeaf {
	categories := make([]string, 0, len(t))
	for category := range t {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var leaves []TaxonomyLeaf
	for _, category := range categories {
		subcategories := make([]string, 0, len(t[category]))
		for sub := range t[category] {
			subcategories = append(subcategories, sub)
		}
		sort.Strings(subcategories)

		for _, sub := range subcategories {
			for _, keyword := range t[category][sub].Keywords {
				leaves = append(leaves, TaxonomyLeaf{
					Category:    category,
					Subcategory: sub,
					Keyword:     keyword,
				})
			}
		}
	}
	return leaves
}
