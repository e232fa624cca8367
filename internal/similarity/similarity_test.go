package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_IdenticalTexts(t *testing.T) {
	s := NewScorer()
	assert.Equal(t, 1.0, s.Score("Traffic jam on MG Road", "Traffic jam on MG Road"))
}

func TestScore_Symmetry(t *testing.T) {
	s := NewScorer()
	pairs := [][2]string{
		{"Heavy traffic jam on MG Road near Trinity", "Traffic jam on MG Road at Trinity Circle"},
		{"Water supply disruption in Indiranagar", "Power outage in Koramangala"},
		{"Fire near market", "fire reported near the market"},
	}
	for _, p := range pairs {
		assert.InDelta(t, s.Score(p[0], p[1]), s.Score(p[1], p[0]), 1e-12)
	}
}

func TestScore_EmptyAfterNormalization(t *testing.T) {
	s := NewScorer()
	assert.Equal(t, 0.0, s.Score("", "Traffic jam"))
	assert.Equal(t, 0.0, s.Score("Traffic jam", "   "))
	assert.Equal(t, 0.0, s.Score("@someone https://t.co/abc", "Traffic jam"))
}

func TestScore_ParaphraseScoresHigh(t *testing.T) {
	s := NewScorer()
	score := s.Score(
		"Heavy traffic jam on MG Road near Trinity",
		"Traffic jam on MG Road at Trinity Circle",
	)
	assert.Greater(t, score, 0.6)
}

func TestScore_UnrelatedTextsScoreLow(t *testing.T) {
	s := NewScorer()
	score := s.Score(
		"Water supply disruption in Indiranagar today",
		"Cricket match celebration at Chinnaswamy stadium",
	)
	assert.Less(t, score, 0.3)
}

func TestScore_IgnoresSocialMediaNoise(t *testing.T) {
	s := NewScorer()
	clean := "Traffic jam on MG Road"
	noisy := "Traffic jam on MG Road @traffipolice #bengaluru https://example.com/pic.jpg"
	assert.Greater(t, s.Score(clean, noisy), 0.85)
}

func TestScore_Bounds(t *testing.T) {
	s := NewScorer()
	texts := []string{
		"Accident near Silk Board junction",
		"accident at silk board",
		"Garbage not collected for three days",
		"x",
	}
	for _, a := range texts {
		for _, b := range texts {
			score := s.Score(a, b)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Traffic JAM", "traffic jam"},
		{"url stripped", "jam https://t.co/xyz here", "jam here"},
		{"mention stripped", "@blrpolice jam ahead", "jam ahead"},
		{"hashtag marker removed", "#bengaluru traffic", "bengaluru traffic"},
		{"whitespace collapsed", "jam   on\tMG   road", "jam on mg road"},
		{"emoji removed", "fire 🔥 reported", "fire reported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestJaccardIndex(t *testing.T) {
	assert.Equal(t, 1.0, jaccardIndex([]string{"a", "b"}, []string{"b", "a"}))
	assert.Equal(t, 0.0, jaccardIndex([]string{"a"}, []string{"b"}))
	assert.InDelta(t, 1.0/3.0, jaccardIndex([]string{"a", "b"}, []string{"b", "c"}), 1e-12)
	assert.Equal(t, 0.0, jaccardIndex(nil, nil))
}

func TestRatcliffRatio(t *testing.T) {
	assert.Equal(t, 1.0, ratcliffRatio("traffic jam", "traffic jam"))
	assert.Equal(t, 1.0, ratcliffRatio("", ""))
	assert.Equal(t, 0.0, ratcliffRatio("abc", ""))
	assert.Equal(t, 0.0, ratcliffRatio("xyz", "abc"))
	// "abcd" vs "bcda": LCS "bcd" (3) + no further match -> 2*3/8.
	assert.InDelta(t, 0.75, ratcliffRatio("abcd", "bcda"), 1e-12)
}

func TestPartialRatio_SubstringMatch(t *testing.T) {
	assert.Equal(t, 1.0, partialRatio("mg road", "traffic jam on mg road near trinity"))
}
