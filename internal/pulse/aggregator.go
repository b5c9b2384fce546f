// Package pulse scores dated documents against a signal corpus and aggregates
// the matches into normalized risk scores by date, category, subcategory and keyword.
// All functions are synchronous and perform no I/O.
package pulse

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/riskpulse/internal/models"
)

// DefaultThreshold is the minimum cosine similarity for a document-signal match
const DefaultThreshold = 0.6

// ErrDimensionMismatch is returned when the signal vectors do not share one dimensionality
var ErrDimensionMismatch = errors.New("signal vector dimension mismatch")

// Aggregator scores documents against signal entries
type Aggregator struct {
	logger arbor.ILogger
}

// NewAggregator creates an aggregator
func NewAggregator(logger arbor.ILogger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Score matches every document against every signal and returns the normalized aggregates.
// Empty signals or documents produce an empty result. Malformed documents are skipped.
func (a *Aggregator) Score(signals []models.SignalEntry, documents map[string]models.Document, threshold float64) (*models.AggregationResult, error) {
	result, err := a.Accumulate(signals, documents, threshold)
	if err != nil {
		return nil, err
	}
	Normalize(result)

	a.logger.Info().
		Int("signals", len(signals)).
		Int("documents", len(documents)).
		Int("matched", result.Matched).
		Int("skipped", result.Skipped).
		Int("dates", len(result.TotalByDate)).
		Float64("threshold", threshold).
		Msg("Scored documents against signal corpus")

	return result, nil
}

// Normalize rescales each of the four score families independently onto 0-100
func Normalize(result *models.AggregationResult) {
	result.TotalByDate = normalizeFlat(result.TotalByDate)
	result.CategoryByDate = normalizeNested(result.CategoryByDate)
	result.SubcategoryByDate = normalizeNested(result.SubcategoryByDate)
	result.KeywordByDate = normalizeNested(result.KeywordByDate)
}

// Accumulate returns the raw, unnormalized weighted scores.
// Each match adds similarity * weight (floored at zero) to its date, category, subcategory and keyword.
func (a *Aggregator) Accumulate(signals []models.SignalEntry, documents map[string]models.Document, threshold float64) (*models.AggregationResult, error) {
	result := models.NewAggregationResult()
	if len(signals) == 0 || len(documents) == 0 {
		a.logger.Info().
			Int("signals", len(signals)).
			Int("documents", len(documents)).
			Msg("Nothing to score")
		return result, nil
	}

	vectors, err := signalVectors(signals)
	if err != nil {
		return nil, err
	}
	matrix := newSignalMatrix(vectors)

	// Distinct matching documents per label
	seen := map[string]map[string]map[string]bool{
		"category":    {},
		"subcategory": {},
		"keyword":     {},
	}

	ids := make([]string, 0, len(documents))
	for id := range documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		doc := documents[id]

		date, ok := models.FormatDate(doc.Date)
		if !ok {
			a.logger.Warn().Str("document", id).Msg("Skipping document without date")
			result.Skipped++
			continue
		}
		if len(doc.Embedding) == 0 {
			a.logger.Warn().Str("document", id).Msg("Skipping document without embedding")
			result.Skipped++
			continue
		}
		if len(doc.Embedding) != matrix.dim {
			a.logger.Warn().
				Str("document", id).
				Int("embedding_dim", len(doc.Embedding)).
				Int("signal_dim", matrix.dim).
				Msg("Skipping document with mismatched embedding dimension")
			result.Skipped++
			continue
		}
		if !finite(doc.Embedding) {
			a.logger.Warn().Str("document", id).Msg("Skipping document with non-finite embedding")
			result.Skipped++
			continue
		}

		sims := matrix.similarities(doc.Embedding)
		matched := false
		for i, sim := range sims {
			if !(sim >= threshold) {
				continue
			}
			matched = true

			s := signals[i]
			contribution := sim * s.Weight
			if !(contribution > 0) || math.IsInf(contribution, 0) {
				contribution = 0
			}

			result.TotalByDate[date] += contribution
			addNested(result.CategoryByDate, date, s.Category, contribution)
			addNested(result.SubcategoryByDate, date, s.Subcategory, contribution)
			addNested(result.KeywordByDate, date, s.Keyword, contribution)

			markSeen(seen["category"], s.Category, id)
			markSeen(seen["subcategory"], s.Subcategory, id)
			markSeen(seen["keyword"], s.Keyword, id)
		}
		if matched {
			result.Matched++
		}
	}

	result.DocumentCounts.Category = countSeen(seen["category"])
	result.DocumentCounts.Subcategory = countSeen(seen["subcategory"])
	result.DocumentCounts.Keyword = countSeen(seen["keyword"])

	return result, nil
}

// signalVectors extracts the signal vectors and checks they share one non-zero dimension
func signalVectors(signals []models.SignalEntry) ([][]float32, error) {
	dim := len(signals[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("%w: signal %q has no vector", ErrDimensionMismatch, signals[0].Phrase)
	}

	vectors := make([][]float32, len(signals))
	for i, s := range signals {
		if len(s.Vector) != dim {
			return nil, fmt.Errorf("%w: signal %q has dimension %d, expected %d", ErrDimensionMismatch, s.Phrase, len(s.Vector), dim)
		}
		if !finite(s.Vector) {
			return nil, fmt.Errorf("%w: signal %q has a non-finite component", ErrDimensionMismatch, s.Phrase)
		}
		vectors[i] = s.Vector
	}
	return vectors, nil
}

// finite reports whether every component is a real number
func finite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func markSeen(labels map[string]map[string]bool, label, docID string) {
	docs, ok := labels[label]
	if !ok {
		docs = make(map[string]bool)
		labels[label] = docs
	}
	docs[docID] = true
}

func countSeen(labels map[string]map[string]bool) map[string]int {
	counts := make(map[string]int, len(labels))
	for label, docs := range labels {
		counts[label] = len(docs)
	}
	return counts
}
