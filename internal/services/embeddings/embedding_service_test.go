package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/riskpulse/internal/models"
)

// fakeBackend returns [len(text), batch index, 1] for each text
type fakeBackend struct {
	batches [][]string
	err     error
	dim     int
	drop    bool
}

func (b *fakeBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	b.batches = append(b.batches, append([]string(nil), texts...))
	if b.err != nil {
		return nil, b.err
	}
	n := len(texts)
	if b.drop {
		n--
	}
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		v := make([]float32, b.dim)
		v[0] = float32(len(texts[i]))
		v[1] = float32(len(b.batches))
		out[i] = v
	}
	return out, nil
}

func (b *fakeBackend) ModelName() string { return "fake-embedding" }

func TestEmbed_SplitsIntoBatchesPreservingOrder(t *testing.T) {
	backend := &fakeBackend{dim: 3}
	service := NewService(backend, 2, 3, arbor.NewLogger())

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := service.Embed(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, backend.batches, 3)
	assert.Equal(t, []string{"eeeee"}, backend.batches[2])

	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0])
	}
	assert.Equal(t, float32(3), vectors[4][1])
}

func TestEmbed_EmptyInputSkipsBackend(t *testing.T) {
	backend := &fakeBackend{dim: 3}
	vectors, err := NewService(backend, 0, 0, arbor.NewLogger()).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Empty(t, backend.batches)
}

func TestEmbed_Failures(t *testing.T) {
	tests := []struct {
		name      string
		backend   *fakeBackend
		dimension int
	}{
		{"backend error", &fakeBackend{dim: 3, err: errors.New("unavailable")}, 0},
		{"short batch", &fakeBackend{dim: 3, drop: true}, 0},
		{"unexpected dimension", &fakeBackend{dim: 4}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(tt.backend, 8, tt.dimension, arbor.NewLogger())
			vectors, err := service.Embed(context.Background(), []string{"tariff hike", "export ban"})
			assert.Error(t, err)
			assert.Nil(t, vectors)
		})
	}
}

func TestEmbedDocuments_FillsOnlyMissingVectors(t *testing.T) {
	backend := &fakeBackend{dim: 3}
	service := NewService(backend, 64, 3, arbor.NewLogger())

	docs := map[string]models.Document{
		"b": {ID: "b", Date: "2024-01-01", Title: "Tariffs", Text: "New duties announced"},
		"a": {ID: "a", Date: "2024-01-01", Text: "Export ban"},
		"c": {ID: "c", Date: "2024-01-02", Embedding: []float32{9, 9, 9}, Text: "already embedded"},
		"d": {ID: "d", Date: "2024-01-02"},
	}

	n, err := service.EmbedDocuments(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, backend.batches, 1)
	assert.Equal(t, []string{"Export ban", "Tariffs\n\nNew duties announced"}, backend.batches[0])

	assert.Len(t, docs["a"].Embedding, 3)
	assert.Len(t, docs["b"].Embedding, 3)
	assert.Equal(t, []float32{9, 9, 9}, docs["c"].Embedding)
	assert.Empty(t, docs["d"].Embedding)
}

func TestEmbedDocuments_NothingToDo(t *testing.T) {
	backend := &fakeBackend{dim: 3}
	n, err := NewService(backend, 64, 3, arbor.NewLogger()).EmbedDocuments(context.Background(), map[string]models.Document{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, backend.batches)
}
