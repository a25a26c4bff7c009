package embedding

import "math"

// Cosine returns dot(a,b)/(|a||b|). Vectors of different length or with zero
// magnitude yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// rounding can push identical vectors slightly past 1
	return math.Max(-1, math.Min(1, sim))
}

// Normalize returns a unit-length copy of vec. A zero vector is returned as a copy.
func Normalize(vec []float32) []float32 {
	out := clone(vec)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return out
	}

	norm := math.Sqrt(sum)
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}
