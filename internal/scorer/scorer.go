// Package scorer implements the two-stage fuzzy matcher: a cheap
// subsequence filter followed by a dynamic-program ranker that attributes
// a score to a (candidate, query) pair of codepoint sequences.
package scorer

import (
	"math"
	"unicode"
)

// Constants per the design's documented defaults. Ordering properties
// (exact match beats any proper-subsequence match, boundary bonus beats a
// mid-word match, consecutive runs beat gapped ones) must be preserved by
// any retuning.
const (
	bonusSlash       float64 = 4500
	bonusBoundary    float64 = 4000
	bonusPeriod      float64 = 3000
	bonusConsecutive float64 = 5000
	scoreGapInner    float64 = -200
	scoreGapLeading  float64 = -50
	scoreGapTrailing float64 = -200
	exactMatchScore  float64 = 1e6
)

// NoMatch is returned for a (haystack, needle) pair where needle is not a
// subsequence of haystack. Callers must treat it as "must not appear in
// results", not as a merely low score.
var NoMatch = math.Inf(-1)

// Score returns the fuzzy-match score of needle against haystack. Higher is
// better; NoMatch means the needle is not a subsequence of the haystack.
func Score(haystack, needle []rune) float64 {
	if ranked, done := filter(haystack, needle); done {
		return ranked
	}
	return rank(haystack, needle)
}

// filter is the Stage 1 cheap check. The second return value is true when
// the score is final and Stage 2 need not run.
func filter(haystack, needle []rune) (float64, bool) {
	if len(needle) == 0 {
		return 0, true
	}
	if len(needle) > len(haystack) {
		return NoMatch, true
	}

	ni := 0
	for _, h := range haystack {
		if h == needle[ni] {
			ni++
			if ni == len(needle) {
				break
			}
		}
	}
	if ni < len(needle) {
		return NoMatch, true
	}
	if len(needle) == len(haystack) {
		return exactMatchScore, true
	}
	return 0, false
}

// rank is the Stage 2 dynamic-program ranker. M[i][j] is the best score of
// an alignment of needle[0:i+1] into haystack[0:j+1] ending with a match at
// j; S[i][j] is the best alignment score using haystack[0:j+1] whether or
// not it ends in a match. Only the previous row of each matrix is kept.
func rank(haystack, needle []rune) float64 {
	h := len(haystack)
	n := len(needle)

	bonus := bonusTable(haystack)

	prevM := make([]float64, h)
	prevS := make([]float64, h)
	curM := make([]float64, h)
	curS := make([]float64, h)

	for i := 0; i < n; i++ {
		gap := scoreGapInner
		if i == n-1 {
			gap = scoreGapTrailing
		}

		var runningBest float64 = NoMatch
		for j := 0; j < h; j++ {
			if needle[i] != haystack[j] {
				curM[j] = NoMatch
				curS[j] = runningBest + gap
				runningBest = curS[j]
				continue
			}

			var m float64
			switch {
			case i == 0:
				m = float64(j)*scoreGapLeading + bonus[j]
			case j == 0:
				m = NoMatch
			default:
				m = max(prevS[j-1]+bonus[j], prevM[j-1]+bonusConsecutive)
			}
			curM[j] = m
			curS[j] = max(m, runningBest+gap)
			runningBest = curS[j]
		}

		prevM, curM = curM, prevM
		prevS, curS = curS, prevS
	}

	return prevS[h-1]
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// bonusTable computes bonus[j] for every position in haystack: the bonus
// awarded to a match ending at j, derived from the codepoint preceding j.
func bonusTable(haystack []rune) []float64 {
	bonus := make([]float64, len(haystack))
	prevWord := false
	var prev rune
	for j, r := range haystack {
		isWord := wordClass(r, prevWord)
		switch {
		case j == 0:
			bonus[j] = 0
		case prev == '/':
			bonus[j] = bonusSlash
		case prev == '.':
			bonus[j] = bonusPeriod
		case prevWord != isWord:
			bonus[j] = bonusBoundary
		default:
			bonus[j] = 0
		}
		prevWord = isWord
		prev = r
	}
	return bonus
}

// wordClass reports whether r is a "word" character: Ll, Lu, Lt, Lm, Lo, or
// Nd. Mc (spacing combining mark) inherits the previous classification
// rather than computing its own.
func wordClass(r rune, previous bool) bool {
	if unicode.Is(unicode.Mc, r) {
		return previous
	}
	return unicode.IsOneOf([]*unicode.RangeTable{
		unicode.Ll, unicode.Lu, unicode.Lt, unicode.Lm, unicode.Lo, unicode.Nd,
	}, r)
}
