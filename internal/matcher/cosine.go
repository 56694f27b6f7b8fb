package matcher

import (
	"math"

	"github.com/csplab/linkage/internal/embedding"
	linkerrors "github.com/csplab/linkage/internal/errors"
)

// CosineSimilarity returns dot(u,v) / (|u|*|v|).
// Vectors of different length yield *errors.DimensionMismatchError and a
// zero-norm vector yields *errors.DegenerateVectorError.
func CosineSimilarity(u, v embedding.Vector) (float64, error) {
	if len(u) != len(v) {
		return 0, linkerrors.NewDimensionMismatchError(len(u), len(v))
	}

	var dot, normU, normV float64
	for i := range u {
		dot += u[i] * v[i]
		normU += u[i] * u[i]
		normV += v[i] * v[i]
	}

	if normU == 0 {
		return 0, linkerrors.NewDegenerateVectorError("left")
	}
	if normV == 0 {
		return 0, linkerrors.NewDegenerateVectorError("right")
	}

	return dot / (math.Sqrt(normU) * math.Sqrt(normV)), nil
}

// clampScore maps a cosine into the [0,1] score range
func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}
