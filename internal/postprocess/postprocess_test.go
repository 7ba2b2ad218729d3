package postprocess

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/classify-api/internal/model"
)

// randomScores returns values on a 1/8 grid so shifting by an integer is exact in float32.
func randomScores(r *rand.Rand) []float32 {
	scores := make([]float32, 1+r.Intn(1000))
	for i := range scores {
		scores[i] = float32(r.Intn(2000)-1000) / 8
	}
	return scores
}

func sum(values []float32) float64 {
	var total float64
	for _, v := range values {
		total += float64(v)
	}
	return total
}

func TestSoftmaxKnownValues(t *testing.T) {
	probs, err := Softmax([]float32{2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.7310586, probs[0], 1e-6)
	assert.InDelta(t, 0.2689414, probs[1], 1e-6)
}

func TestSoftmaxSumsToOne(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		probs, err := Softmax(randomScores(r))
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sum(probs), 1e-6)
		for _, p := range probs {
			require.True(t, p >= 0 && p <= 1, "probability %v out of range", p)
		}
	}
}

func TestSoftmaxShiftInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		scores := randomScores(r)
		shift := float32(r.Intn(2000) - 1000)
		shifted := make([]float32, len(scores))
		for j, s := range scores {
			shifted[j] = s + shift
		}

		a, err := Softmax(scores)
		require.NoError(t, err)
		b, err := Softmax(shifted)
		require.NoError(t, err)
		assert.InDeltaSlice(t, a, b, 1e-6)
	}
}

func TestSoftmaxLargeLogits(t *testing.T) {
	probs, err := Softmax([]float32{1000, 1001, 999})
	require.NoError(t, err)
	for _, p := range probs {
		require.False(t, math.IsNaN(float64(p)) || math.IsInf(float64(p), 0))
	}
	assert.InDelta(t, 1.0, sum(probs), 1e-6)
	assert.Equal(t, 1, Argmax(probs))
}

func TestSoftmaxEmpty(t *testing.T) {
	_, err := Softmax(nil)
	require.ErrorIs(t, err, model.ErrEmptyScores)
}

func TestArgmaxPreservedBySoftmax(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		scores := randomScores(r)
		probs, id, err := Classify(scores)
		require.NoError(t, err)
		require.Equal(t, Argmax(scores), id)
		require.Equal(t, Argmax(scores), Argmax(probs))
	}
}

func TestClassifyResolvesSubPrecisionGaps(t *testing.T) {
	probs, id, err := Classify([]float32{0, 1e-10})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.InDelta(t, 0.5, probs[id], 1e-6)

	_, id, err = Classify([]float32{3, 3 + 1e-6, 3})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}

func TestSoftmaxRejectsNonFinite(t *testing.T) {
	for _, bad := range []float32{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))} {
		_, err := Softmax([]float32{1, bad, 2})
		require.ErrorIs(t, err, model.ErrInference, "%v", bad)

		_, id, err := Classify([]float32{bad})
		require.ErrorIs(t, err, model.ErrInference, "%v", bad)
		assert.Equal(t, -1, id)
	}
}

func TestArgmaxTiesPickLowestIndex(t *testing.T) {
	assert.Equal(t, 1, Argmax([]float32{0, 3, 1, 3}))
	assert.Equal(t, 0, Argmax([]float32{0.25, 0.25, 0.25, 0.25}))
	assert.Equal(t, -1, Argmax(nil))

	_, id, err := Classify([]float32{5, 5, 5})
	require.NoError(t, err)
	assert.Equal(t, 0, id)
}

func TestClassifyEmpty(t *testing.T) {
	_, id, err := Classify([]float32{})
	require.ErrorIs(t, err, model.ErrEmptyScores)
	assert.Equal(t, -1, id)
}

func TestTopK(t *testing.T) {
	probs := []float32{0.1, 0.4, 0.1, 0.4}

	assert.Equal(t, []Class{{1, 0.4}, {3, 0.4}, {0, 0.1}}, TopK(probs, 3))
	assert.Len(t, TopK(probs, 10), 4)
	assert.Nil(t, TopK(probs, 0))
}
