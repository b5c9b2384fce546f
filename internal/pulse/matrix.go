package pulse

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// signalMatrix holds the L2-normalised signal vectors as the rows of one dense matrix,
// so a document's cosine similarity against every signal is a single matrix-vector product.
type signalMatrix struct {
	rows *mat.Dense
	dim  int
}

func newSignalMatrix(vectors [][]float32) *signalMatrix {
	n, dim := len(vectors), len(vectors[0])
	data := make([]float64, n*dim)
	for i, v := range vectors {
		copy(data[i*dim:(i+1)*dim], unit(v))
	}
	return &signalMatrix{
		rows: mat.NewDense(n, dim, data),
		dim:  dim,
	}
}

// similarities returns cosine(embedding, signal_i) for every signal row.
// A zero-norm embedding or signal yields similarity 0.
func (m *signalMatrix) similarities(embedding []float32) []float64 {
	n, _ := m.rows.Dims()
	doc := mat.NewVecDense(m.dim, unit(embedding))

	var out mat.VecDense
	out.MulVec(m.rows, doc)

	sims := make([]float64, n)
	for i := range sims {
		sims[i] = out.AtVec(i)
	}
	return sims
}

// unit converts v to float64 and scales it to length 1 (zero vectors stay zero)
func unit(v []float32) []float64 {
	out := make([]float64, len(v))
	var norm float64
	for i, x := range v {
		out[i] = float64(x)
		norm += out[i] * out[i]
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out
}
