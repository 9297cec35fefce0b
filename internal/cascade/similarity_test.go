package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{
			name: "identical titles",
			a:    "Burgundy Midi Dress",
			b:    "Burgundy Midi Dress",
			want: 1.0,
		},
		{
			name: "word order ignored",
			a:    "Dress Burgundy Midi",
			b:    "Burgundy Midi Dress",
			want: 1.0,
		},
		{
			name: "case folded",
			a:    "BURGUNDY MIDI DRESS",
			b:    "burgundy midi dress",
			want: 1.0,
		},
		{
			name: "punctuation trimmed",
			a:    "Burgundy Midi Dress.",
			b:    "Burgundy Midi Dress",
			want: 1.0,
		},
		{
			name: "both empty",
			a:    "",
			b:    "",
			want: 1.0,
		},
		{
			name: "one empty",
			a:    "Burgundy Midi Dress",
			b:    "",
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TokenSetRatio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTokenSetRatio_SubsetScoresOne(t *testing.T) {
	// Token-set comparison: extra marketing words on one side do not lower
	// the score when the shorter title's tokens are fully contained.
	sim := TokenSetRatio("Burgundy Midi Dress", "Burgundy Midi Dress Petite Fit")
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestTokenSetRatio_NearMatch(t *testing.T) {
	// A one-character spelling difference stays above the default floor.
	sim := TokenSetRatio("Burgundy Midi Wrap Dress", "Burgundy Midi Wrap Dresses")
	assert.Greater(t, sim, DefaultFuzzySimilarityFloor)
	assert.Less(t, sim, 1.0)
}

func TestTokenSetRatio_Dissimilar(t *testing.T) {
	sim := TokenSetRatio("Burgundy Midi Dress", "Stainless Steel Kettle")
	assert.Less(t, sim, 0.5)
}

func TestTokenSetRatio_Symmetric(t *testing.T) {
	a, b := "Burgundy Midi Wrap Dress", "Midi Dress in Burgundy"
	assert.InDelta(t, TokenSetRatio(a, b), TokenSetRatio(b, a), 1e-9)
}

func TestFuzzyConfidence(t *testing.T) {
	tests := []struct {
		name       string
		similarity float64
		want       float64
	}{
		{name: "at the floor", similarity: 0.90, want: 0.85},
		{name: "midway", similarity: 0.91, want: 0.90},
		{name: "perfect clamps to cap", similarity: 1.0, want: 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FuzzyConfidence(tt.similarity, DefaultFuzzySimilarityFloor), 1e-9)
		})
	}
}
