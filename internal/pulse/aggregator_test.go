package pulse

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/riskpulse/internal/models"
)

// atSimilarity returns a 2-d unit vector whose cosine similarity to (1, 0) is sim
func atSimilarity(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func newTestAggregator() *Aggregator {
	return NewAggregator(arbor.NewLogger())
}

func TestScore_SingleSignalExample(t *testing.T) {
	signals := []models.SignalEntry{{
		Phrase:      "tariff hike",
		Vector:      []float32{1, 0},
		Weight:      100,
		Category:    "trade",
		Subcategory: "tariffs",
		Keyword:     "tariff",
	}}
	documents := map[string]models.Document{
		"a": {ID: "a", Date: "2024-01-01", Embedding: atSimilarity(0.9)},
		"b": {ID: "b", Date: "2024-01-02", Embedding: atSimilarity(0.3)},
	}

	result, err := newTestAggregator().Score(signals, documents, DefaultThreshold)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"2024-01-01": 100}, result.TotalByDate)
	assert.Equal(t, map[string]map[string]float64{"2024-01-01": {"trade": 100}}, result.CategoryByDate)
	assert.Equal(t, map[string]map[string]float64{"2024-01-01": {"tariffs": 100}}, result.SubcategoryByDate)
	assert.Equal(t, map[string]map[string]float64{"2024-01-01": {"tariff": 100}}, result.KeywordByDate)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, map[string]int{"trade": 1}, result.DocumentCounts.Category)
}

func TestAccumulate_RawContribution(t *testing.T) {
	signals := []models.SignalEntry{{Phrase: "tariff hike", Vector: []float32{1, 0}, Weight: 100, Category: "trade", Subcategory: "tariffs", Keyword: "tariff"}}
	documents := map[string]models.Document{
		"a": {ID: "a", Date: "2024-01-01", Embedding: atSimilarity(0.9)},
	}

	raw, err := newTestAggregator().Accumulate(signals, documents, DefaultThreshold)
	require.NoError(t, err)
	assert.InDelta(t, 90, raw.TotalByDate["2024-01-01"], 1e-4)
}

func TestScore_ContributionsAreAdditiveWithinCategory(t *testing.T) {
	signals := []models.SignalEntry{
		{Phrase: "tariff hike", Vector: []float32{1, 0}, Weight: 50, Category: "trade", Subcategory: "tariffs", Keyword: "tariff"},
		{Phrase: "import duty", Vector: []float32{2, 0}, Weight: 200, Category: "trade", Subcategory: "duties", Keyword: "duty"},
	}
	documents := map[string]models.Document{
		"a": {ID: "a", Date: "2024-03-01", Embedding: []float32{1, 0}},
	}

	agg := newTestAggregator()
	raw, err := agg.Accumulate(signals, documents, DefaultThreshold)
	require.NoError(t, err)
	assert.InDelta(t, 250, raw.CategoryByDate["2024-03-01"]["trade"], 1e-6)

	result, err := agg.Score(signals, documents, DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.CategoryByDate["2024-03-01"]["trade"])
	assert.InDelta(t, 25, result.SubcategoryByDate["2024-03-01"]["tariffs"], 1e-6)
	assert.Equal(t, 100.0, result.SubcategoryByDate["2024-03-01"]["duties"])
}

func TestScore_NestedFamiliesUseGlobalMax(t *testing.T) {
	signals := []models.SignalEntry{
		{Phrase: "coup attempt", Vector: []float32{1, 0}, Weight: 200, Category: "stability", Subcategory: "unrest", Keyword: "coup"},
		{Phrase: "new tariff", Vector: []float32{0, 1}, Weight: 50, Category: "trade", Subcategory: "tariffs", Keyword: "tariff"},
	}
	documents := map[string]models.Document{
		"a": {ID: "a", Date: "2024-01-01", Embedding: []float32{1, 0}},
		"b": {ID: "b", Date: "2024-01-02", Embedding: []float32{0, 1}},
	}

	result, err := newTestAggregator().Score(signals, documents, DefaultThreshold)
	require.NoError(t, err)

	// One denominator for all dates: the trade-only day stays at a quarter of the peak
	assert.Equal(t, 100.0, result.CategoryByDate["2024-01-01"]["stability"])
	assert.InDelta(t, 25, result.CategoryByDate["2024-01-02"]["trade"], 1e-6)
	assert.InDelta(t, 25, result.TotalByDate["2024-01-02"], 1e-6)
}

func TestScore_EmptyInputs(t *testing.T) {
	signals := []models.SignalEntry{{Phrase: "tariff hike", Vector: []float32{1, 0}, Weight: 100, Category: "trade", Subcategory: "tariffs", Keyword: "tariff"}}
	documents := map[string]models.Document{"a": {ID: "a", Date: "2024-01-01", Embedding: []float32{1, 0}}}

	tests := []struct {
		name      string
		signals   []models.SignalEntry
		documents map[string]models.Document
	}{
		{"no signals", nil, documents},
		{"no documents", signals, map[string]models.Document{}},
		{"nothing at all", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestAggregator().Score(tt.signals, tt.documents, DefaultThreshold)
			require.NoError(t, err)
			require.NotNil(t, result.TotalByDate)
			assert.Empty(t, result.TotalByDate)
			assert.Empty(t, result.CategoryByDate)
			assert.Empty(t, result.SubcategoryByDate)
			assert.Empty(t, result.KeywordByDate)
			assert.True(t, result.IsEmpty())
		})
	}
}

func TestScore_NoMatchesGivesEmptyFamilies(t *testing.T) {
	signals := []models.SignalEntry{{Phrase: "tariff hike", Vector: []float32{1, 0}, Weight: 100, Category: "trade", Subcategory: "tariffs", Keyword: "tariff"}}
	documents := map[string]models.Document{"a": {ID: "a", Date: "2024-01-01", Embedding: []float32{0, 1}}}

	result, err := newTestAggregator().Score(signals, documents, DefaultThreshold)
	require.NoError(t, err)
	assert.Empty(t, result.TotalByDate)
	assert.Empty(t, result.KeywordByDate)
	assert.Equal(t, 0, result.Matched)
}

func TestScore_SkipsMalformedDocuments(t *testing.T) {
	signals := []models.SignalEntry{{Phrase: "tariff hike", Vector: []float32{1, 0}, Weight: 100, Category: "trade", Subcategory: "tariffs", Keyword: "tariff"}}
	documents := map[string]models.Document{
		"no-date":      {ID: "no-date", Embedding: []float32{1, 0}},
		"blank-date":   {ID: "blank-date", Date: "  ", Embedding: []float32{1, 0}},
		"no-embedding": {ID: "no-embedding", Date: "2024-01-01"},
		"wrong-dim":    {ID: "wrong-dim", Date: "2024-01-01", Embedding: []float32{1, 0, 0}},
		"good":         {ID: "good", Date: time.Date(2024, 2, 3, 15, 4, 5, 0, time.UTC), Embedding: []float32{1, 0}},
	}

	result, err := newTestAggregator().Score(signals, documents, DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Skipped)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, map[string]float64{"2024-02-03": 100}, result.TotalByDate)
}

func TestScore_RejectsInconsistentSignalVectors(t *testing.T) {
	signals := []models.SignalEntry{
		{Phrase: "tariff hike", Vector: []float32{1, 0}, Weight: 100},
		{Phrase: "trade war", Vector: []float32{1, 0, 0}, Weight: 100},
	}
	documents := map[string]models.Document{"a": {ID: "a", Date: "2024-01-01", Embedding: []float32{1, 0}}}

	result, err := newTestAggregator().Score(signals, documents, DefaultThreshold)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Nil(t, result)
}

func TestScore_NonFiniteEmbeddingIsSkipped(t *testing.T) {
	signals := []models.SignalEntry{{Phrase: "tariff hike", Vector: []float32{1, 0}, Weight: 100, Category: "trade", Subcategory: "tariffs", Keyword: "tariff"}}
	documents := map[string]models.Document{
		"a":   {ID: "a", Date: "2024-01-01", Embedding: atSimilarity(0.9)},
		"nan": {ID: "nan", Date: "2024-01-02", Embedding: []float32{float32(math.NaN()), 0}},
		"inf": {ID: "inf", Date: "2024-01-03", Embedding: []float32{float32(math.Inf(1)), 0}},
	}

	result, err := newTestAggregator().Score(signals, documents, DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, map[string]float64{"2024-01-01": 100}, result.TotalByDate)
	assert.Equal(t, map[string]int{"trade": 1}, result.DocumentCounts.Category)
}

func TestScore_RejectsNonFiniteSignalVectors(t *testing.T) {
	signals := []models.SignalEntry{
		{Phrase: "tariff hike", Vector: []float32{1, 0}, Weight: 100},
		{Phrase: "trade war", Vector: []float32{float32(math.NaN()), 1}, Weight: 100},
	}
	documents := map[string]models.Document{"a": {ID: "a", Date: "2024-01-01", Embedding: []float32{1, 0}}}

	result, err := newTestAggregator().Score(signals, documents, DefaultThreshold)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Nil(t, result)
}

func TestScore_ZeroVectorsNeverMatch(t *testing.T) {
	signals := []models.SignalEntry{{Phrase: "tariff hike", Vector: []float32{0, 0}, Weight: 100, Category: "trade", Subcategory: "tariffs", Keyword: "tariff"}}
	documents := map[string]models.Document{"a": {ID: "a", Date: "2024-01-01", Embedding: []float32{1, 0}}}

	result, err := newTestAggregator().Score(signals, documents, DefaultThreshold)
	require.NoError(t, err)
	assert.Empty(t, result.TotalByDate)
}

func TestScore_NegativeThresholdClampsContributions(t *testing.T) {
	signals := []models.SignalEntry{{Phrase: "tariff hike", Vector: []float32{1, 0}, Weight: 100, Category: "trade", Subcategory: "tariffs", Keyword: "tariff"}}
	documents := map[string]models.Document{
		"a": {ID: "a", Date: "2024-01-01", Embedding: []float32{-1, 0}},
		"b": {ID: "b", Date: "2024-01-02", Embedding: []float32{1, 0}},
	}

	result, err := newTestAggregator().Score(signals, documents, -1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.TotalByDate["2024-01-01"])
	assert.Equal(t, 100.0, result.TotalByDate["2024-01-02"])
}

// randomCorpus builds a reproducible corpus and document set for property checks
func randomCorpus(seed int64) ([]models.SignalEntry, map[string]models.Document) {
	rng := rand.New(rand.NewSource(seed))
	vec := func() []float32 {
		v := make([]float32, 8)
		for i := range v {
			v[i] = float32(rng.NormFloat64())
		}
		return v
	}

	categories := []string{"trade", "stability", "regulation"}
	keywords := []string{"tariff", "coup", "license", "strike", "sanction"}
	signals := make([]models.SignalEntry, 40)
	for i := range signals {
		signals[i] = models.SignalEntry{
			Phrase:      keywords[i%len(keywords)] + " signal",
			Vector:      vec(),
			Weight:      50 + rng.Float64()*150,
			Category:    categories[i%len(categories)],
			Subcategory: categories[i%len(categories)] + "-sub",
			Keyword:     keywords[i%len(keywords)],
		}
	}

	documents := make(map[string]models.Document, 60)
	for i := 0; i < 60; i++ {
		id := string(rune('A'+i%26)) + string(rune('a'+i/26))
		documents[id] = models.Document{
			ID:        id,
			Date:      time.Date(2024, 1, 1+i%10, 0, 0, 0, 0, time.UTC).Format(models.DateLayout),
			Embedding: vec(),
		}
	}
	return signals, documents
}

func allNested(family map[string]map[string]float64) []float64 {
	var values []float64
	for _, labels := range family {
		for _, v := range labels {
			values = append(values, v)
		}
	}
	return values
}

func flat(family map[string]float64) []float64 {
	var values []float64
	for _, v := range family {
		values = append(values, v)
	}
	return values
}

func TestScore_NormalizationBoundsAndGlobalMax(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		signals, documents := randomCorpus(seed)
		result, err := newTestAggregator().Score(signals, documents, 0.2)
		require.NoError(t, err)
		require.False(t, result.IsEmpty(), "seed %d produced no matches", seed)

		families := [][]float64{
			flat(result.TotalByDate),
			allNested(result.CategoryByDate),
			allNested(result.SubcategoryByDate),
			allNested(result.KeywordByDate),
		}
		for _, values := range families {
			peak := 0.0
			for _, v := range values {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 100.0)
				peak = math.Max(peak, v)
			}
			assert.Equal(t, 100.0, peak)
		}
	}
}

func TestAccumulate_ThresholdMonotonicity(t *testing.T) {
	signals, documents := randomCorpus(42)
	agg := newTestAggregator()

	thresholds := []float64{0, 0.1, 0.2, 0.3, 0.5, 0.7}
	var previous *models.AggregationResult
	for _, threshold := range thresholds {
		raw, err := agg.Accumulate(signals, documents, threshold)
		require.NoError(t, err)

		if previous != nil {
			for date, v := range raw.TotalByDate {
				assert.LessOrEqual(t, v, previous.TotalByDate[date]+1e-9)
			}
			for date, labels := range raw.KeywordByDate {
				for label, v := range labels {
					assert.LessOrEqual(t, v, previous.KeywordByDate[date][label]+1e-9)
				}
			}
			assert.LessOrEqual(t, raw.Matched, previous.Matched)
		}
		previous = raw
	}
}
