// Package similarity scores free-text likeness between two event
// descriptions on a 0–1 scale. The score blends a pair-corpus TF-IDF cosine,
// an edit-distance ratio, and token-set overlap so that it catches both
// paraphrases and near-identical short strings.
package similarity

import (
	"math"
	"regexp"
	"strings"

	"github.com/agext/levenshtein"
)

// Component weights. TF-IDF dominates because it tracks shared vocabulary
// relative to the pair; the edit and token components rescue short strings
// that TF-IDF under-weights.
const (
	tfidfWeight   = 0.5
	fuzzyWeight   = 0.3
	jaccardWeight = 0.2
)

var (
	urlRe     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	mentionRe = regexp.MustCompile(`@\w+`)
	// Everything except letters, digits, whitespace, and basic punctuation.
	junkRe = regexp.MustCompile(`[^a-z0-9\s.,!?'-]`)

	stopwords = map[string]struct{}{
		"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
		"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {},
		"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {},
		"that": {}, "the": {}, "there": {}, "this": {}, "to": {}, "was": {},
		"were": {}, "will": {}, "with": {},
	}
)

// Scorer computes text similarity. The zero value is not usable; construct
// with NewScorer so instances stay injectable alongside the geo resolver.
type Scorer struct{}

// NewScorer returns a text similarity scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns a similarity in [0,1]. It is symmetric and returns 1 for
// identical non-empty inputs, 0 when either input is empty after
// normalization.
func (s *Scorer) Score(text1, text2 string) float64 {
	a := Normalize(text1)
	b := Normalize(text2)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	tfidf := tfidfCosine(a, b)
	fuzzy := math.Max(levenshtein.Similarity(a, b, nil),
		math.Max(ratcliffRatio(a, b), partialRatio(a, b)))
	jaccard := jaccardIndex(tokenize(a), tokenize(b))

	score := tfidfWeight*tfidf + fuzzyWeight*fuzzy + jaccardWeight*jaccard
	return math.Min(score, 1)
}

// Normalize lowercases text, strips URLs, @-mentions, and hashtag markers,
// removes characters outside the basic alphanumeric-plus-punctuation set,
// and collapses whitespace.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = urlRe.ReplaceAllString(text, " ")
	text = mentionRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "#", "")
	text = junkRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// tokenize splits normalized text into words, dropping punctuation and
// stopwords.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; !stop {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// terms produces unigram and bigram terms for the TF-IDF vector.
func terms(tokens []string) []string {
	out := make([]string, 0, 2*len(tokens))
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// tfidfCosine computes cosine similarity of the TF-IDF vectors of the two
// texts over the two-document corpus formed by the pair itself. Smoothed IDF
// (ln((1+n)/(1+df))+1) keeps shared terms from zeroing out entirely.
func tfidfCosine(a, b string) float64 {
	termsA := terms(tokenize(a))
	termsB := terms(tokenize(b))
	if len(termsA) == 0 || len(termsB) == 0 {
		return 0
	}

	tfA := termFreq(termsA)
	tfB := termFreq(termsB)

	idf := make(map[string]float64, len(tfA)+len(tfB))
	for term := range tfA {
		df := 1.0
		if _, ok := tfB[term]; ok {
			df = 2.0
		}
		idf[term] = math.Log(3.0/(1.0+df)) + 1.0
	}
	for term := range tfB {
		if _, ok := idf[term]; !ok {
			idf[term] = math.Log(3.0/2.0) + 1.0
		}
	}

	var dot, normA, normB float64
	for term, fa := range tfA {
		wa := fa * idf[term]
		normA += wa * wa
		if fb, ok := tfB[term]; ok {
			dot += wa * fb * idf[term]
		}
	}
	for term, fb := range tfB {
		wb := fb * idf[term]
		normB += wb * wb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func termFreq(terms []string) map[string]float64 {
	tf := make(map[string]float64, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	for t := range tf {
		tf[t] /= float64(len(terms))
	}
	return tf
}

// partialRatio slides the shorter string across the longer one and returns
// the best window similarity, so a substring match scores high even when the
// lengths differ a lot.
func partialRatio(a, b string) float64 {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	if len(short) == len(long) {
		return levenshtein.Similarity(short, long, nil)
	}

	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		if sim := levenshtein.Similarity(short, long[i:i+len(short)], nil); sim > best {
			best = sim
			if best == 1 {
				break
			}
		}
	}
	return best
}

// ratcliffRatio is the Ratcliff/Obershelp similarity: twice the total
// matched characters (recursive longest-common-substring alignment) over
// the combined length. More forgiving than edit distance when word order
// shifts, e.g. "jam near trinity" vs "jam at trinity circle".
func ratcliffRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return 2 * float64(matchedLen(a, b)) / float64(len(a)+len(b))
}

// matchedLen finds the longest common substring, then recurses on the
// unmatched prefixes and suffixes.
func matchedLen(a, b string) int {
	ia, ib, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchedLen(a[:ia], b[:ib]) +
		matchedLen(a[ia+size:], b[ib+size:])
}

func longestCommonSubstring(a, b string) (ia, ib, size int) {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ia, ib = i-size, j-size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return ia, ib, size
}

// jaccardIndex computes intersection over union of the word sets.
func jaccardIndex(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
