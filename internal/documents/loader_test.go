package documents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/riskpulse/internal/models"
)

func TestParse_ObjectKeyedByID(t *testing.T) {
	docs, err := Parse([]byte(`{
		"doc-1": {"date": "2024-01-01", "embedding": [0.1, 0.2], "title": "Tariffs rise"},
		"doc-2": {"date": 20240102, "text": "Embargo announced"},
		"doc-3": {"embedding": [1, 0]}
	}`))
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "doc-1", docs["doc-1"].ID)
	assert.Equal(t, []float32{0.1, 0.2}, docs["doc-1"].Embedding)

	date, ok := models.FormatDate(docs["doc-2"].Date)
	assert.True(t, ok)
	assert.Equal(t, "20240102", date)

	_, ok = models.FormatDate(docs["doc-3"].Date)
	assert.False(t, ok)
}

func TestParse_Array(t *testing.T) {
	docs, err := Parse([]byte(`[{"id": "a", "date": "2024-01-01"}, {"id": "b", "date": "2024-01-02"}]`))
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, "2024-01-02", docs["b"].Date)
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{
		`[{"date": "2024-01-01"}]`,
		`[{"id": "a"}, {"id": "a"}]`,
		`{"a": {"embedding": "not a vector"}}`,
		`{"a": `,
	}
	for _, input := range inputs {
		_, err := Parse([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": {"date": "2024-01-01"}}`), 0644))

	docs, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, docs, "a")

	empty, err := Parse([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
