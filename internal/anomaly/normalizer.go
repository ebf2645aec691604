// Package anomaly implements the learned threat detector: feature
// normalization, a reconstruction-based autoencoder, and the lifecycle
// manager that retrains and serves the two as an atomic pair.
package anomaly

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned when fitting or retraining is attempted
// against an empty corpus.
var ErrInsufficientData = errors.New("anomaly: no readings to train on")

// Normalizer standardizes feature vectors using per-feature mean and
// standard deviation fitted from a training corpus. Immutable after fit.
type Normalizer struct {
	mean  []float64
	scale []float64
}

// FitNormalizer computes per-feature statistics over the given matrix.
// Each row is a sample, each column a feature. Fitting on zero rows is
// an error: producing NaN scales silently is forbidden.
func FitNormalizer(matrix [][]float64) (*Normalizer, error) {
	if len(matrix) == 0 {
		return nil, ErrInsufficientData
	}

	dims := len(matrix[0])
	mean := make([]float64, dims)
	scale := make([]float64, dims)

	for _, row := range matrix {
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(matrix))
	for j := range mean {
		mean[j] /= n
	}

	for _, row := range matrix {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		// A constant feature would divide by zero; fall back to 1.0
		// so transform just centers it.
		if scale[j] == 0 {
			scale[j] = 1.0
		}
	}

	return &Normalizer{mean: mean, scale: scale}, nil
}

// Transform standardizes a single feature vector using the fitted statistics.
func (n *Normalizer) Transform(vec []float64) []float64 {
	out := make([]float64, len(vec))
	for j, v := range vec {
		out[j] = (v - n.mean[j]) / n.scale[j]
	}
	return out
}

// TransformAll standardizes every row of a matrix.
func (n *Normalizer) TransformAll(matrix [][]float64) [][]float64 {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		out[i] = n.Transform(row)
	}
	return out
}
