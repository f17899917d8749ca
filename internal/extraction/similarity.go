package extraction

import (
	"math"
	"strings"
	"unicode"
)

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// termFreq builds a term-frequency vector for a text.
func termFreq(s string) map[string]float64 {
	tf := make(map[string]float64)
	for _, tok := range tokenize(s) {
		tf[tok]++
	}
	return tf
}

// cosine returns the cosine similarity of two term-frequency vectors,
// in [0,1]. Empty texts are similar to nothing, including each other.
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot, normA, normB float64
	for tok, fa := range a {
		normA += fa * fa
		if fb, ok := b[tok]; ok {
			dot += fa * fb
		}
	}
	for _, fb := range b {
		normB += fb * fb
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// similarity scores two memory contents for near-duplicate detection.
func similarity(a, b string) float64 {
	return cosine(termFreq(a), termFreq(b))
}
