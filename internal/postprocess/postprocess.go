package postprocess

import (
	"math"
	"sort"

	"github.com/Brownie44l1/classify-api/internal/model"
)

const stage = "postprocess"

// Softmax turns raw scores into probabilities. The maximum is subtracted
// before exponentiating so large logits do not overflow. NaN or infinite
// scores are an inference fault.
func Softmax(scores []float32) ([]float32, error) {
	if len(scores) == 0 {
		return nil, model.NewError(model.ErrEmptyScores, stage, nil)
	}

	peak := math.Inf(-1)
	for i, s := range scores {
		v := float64(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, model.Errorf(model.ErrInference, stage, "score %d is not finite: %v", i, s)
		}
		peak = math.Max(peak, v)
	}

	exps := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		exps[i] = math.Exp(float64(s) - peak)
		sum += exps[i]
	}

	probs := make([]float32, len(scores))
	for i, e := range exps {
		probs[i] = float32(e / sum)
	}
	return probs, nil
}

// Argmax returns the index of the largest value. Ties go to the lowest index.
// It returns -1 for an empty slice.
func Argmax(values []float32) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best
}

// Classify returns the probability distribution over scores and the winning
// class id. The id is taken from the raw scores, since scores closer than
// float32 resolution collapse to equal probabilities.
func Classify(scores []float32) ([]float32, int, error) {
	probs, err := Softmax(scores)
	if err != nil {
		return nil, -1, err
	}
	return probs, Argmax(scores), nil
}

// Class is one ranked entry of a distribution.
type Class struct {
	ID          int
	Probability float32
}

// TopK returns the k most probable classes, highest first, ties by lowest id.
func TopK(probs []float32, k int) []Class {
	if k <= 0 {
		return nil
	}
	classes := make([]Class, len(probs))
	for i, p := range probs {
		classes[i] = Class{ID: i, Probability: p}
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].Probability > classes[j].Probability
	})
	if k < len(classes) {
		classes = classes[:k]
	}
	return classes
}
