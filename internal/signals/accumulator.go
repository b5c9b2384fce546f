package signals

import (
	"math"
	"strings"

	"github.com/ternarybob/riskpulse/internal/models"
)

// leafPhrases is the output of one taxonomy leaf, collected independently of other leaves
type leafPhrases struct {
	leaf    models.TaxonomyLeaf
	phrases []models.PhraseWeight
}

type phraseRecord struct {
	weight float64
	leaf   models.TaxonomyLeaf
}

// accumulator merges leaf outputs into unique phrases (first-seen order)
// plus every metadata record that mentions them.
type accumulator struct {
	order   []string
	records map[string][]phraseRecord
}

func newAccumulator() *accumulator {
	return &accumulator{
		records: make(map[string][]phraseRecord),
	}
}

// add merges one leaf's phrases and returns the number of phrases it rejected
func (a *accumulator) add(lp leafPhrases) int {
	rejected := 0
	for _, pw := range lp.phrases {
		phrase := strings.TrimSpace(pw.Phrase)
		if phrase == "" || !validWeight(pw.Weight) {
			rejected++
			continue
		}

		if _, seen := a.records[phrase]; !seen {
			a.order = append(a.order, phrase)
		}
		a.records[phrase] = append(a.records[phrase], phraseRecord{
			weight: pw.Weight,
			leaf:   lp.leaf,
		})
	}
	return rejected
}

func (a *accumulator) uniquePhrases() []string {
	return a.order
}

func (a *accumulator) recordCount() int {
	n := 0
	for _, recs := range a.records {
		n += len(recs)
	}
	return n
}

// materialize emits one entry per record; vectors[i] belongs to uniquePhrases()[i]
func (a *accumulator) materialize(vectors [][]float32) []models.SignalEntry {
	entries := make([]models.SignalEntry, 0, a.recordCount())
	for i, phrase := range a.order {
		for _, rec := range a.records[phrase] {
			entries = append(entries, models.SignalEntry{
				Phrase:      phrase,
				Vector:      vectors[i],
				Weight:      rec.weight,
				Category:    rec.leaf.Category,
				Subcategory: rec.leaf.Subcategory,
				Keyword:     rec.leaf.Keyword,
			})
		}
	}
	return entries
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
