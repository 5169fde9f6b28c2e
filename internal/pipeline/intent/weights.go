// internal/pipeline/intent/weights.go
package intent

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"finsight/internal/models"
)

// ParseWeightToken parses one weight literal. Accepts decimal form
// ("0.4") and percent form ("40%").
func ParseWeightToken(s string) (float64, error) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")

	w, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid weight %q: %w", s, err)
	}
	if percent {
		w /= 100
	}
	if w < 0 {
		return 0, fmt.Errorf("negative weight %q", s)
	}
	return w, nil
}

// NormalizeWeights rescales a weight vector so it sums to exactly one
// within models.WeightTolerance. Vectors already within tolerance pass
// through unchanged.
func NormalizeWeights(weights []float64) ([]float64, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("empty weight vector")
	}

	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("negative weight %v", w)
		}
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("weight vector sums to zero")
	}

	if math.Abs(sum-1) <= models.WeightTolerance {
		return weights, nil
	}

	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = w / sum
	}
	return out, nil
}

// EqualWeights returns an n-way equal split.
func EqualWeights(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}
