package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	defaultHashDimensions = 384
	trigramWeight         = 0.5
)

// HashModel is a local feature-hashing model. Words and their character trigrams are
// hashed into a fixed number of signed buckets, so texts sharing vocabulary point in
// similar directions. It needs no network and is fully deterministic.
type HashModel struct {
	dims int
}

func NewHashModel(dims int) *HashModel {
	if dims <= 0 {
		dims = defaultHashDimensions
	}
	return &HashModel{dims: dims}
}

func (h *HashModel) Dimensions() int { return h.dims }

func (h *HashModel) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	for _, token := range Tokenize(text) {
		h.add(vec, "w:"+token, 1)
		for _, gram := range trigrams(token) {
			h.add(vec, "g:"+gram, trigramWeight)
		}
	}
	return vec, nil
}

func (h *HashModel) add(vec []float32, feature string, weight float32) {
	sum := fnv.New64a()
	_, _ = sum.Write([]byte(feature))
	v := sum.Sum64()

	idx := int(v % uint64(h.dims))
	if v>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// Tokenize lowercases NFKC-normalized text and splits it into words. '+' and '#'
// stay inside tokens so that "C++" and "C#" survive.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		if r == '+' || r == '#' {
			return false
		}
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func trigrams(token string) []string {
	runes := []rune("^" + token + "$")
	if len(runes) < 3 {
		return nil
	}
	grams := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+3]))
	}
	return grams
}
