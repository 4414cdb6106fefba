package compare

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// strippedPunctuation is removed before tokenizing.
const strippedPunctuation = `.,!?"`

// NormalizeLyrics folds accents, drops basic punctuation, collapses whitespace and lowercases.
// Reference lyrics are stored in this form when a song is registered.
func NormalizeLyrics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	folded = strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedPunctuation, r) {
			return -1
		}
		return r
	}, folded)

	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// CompareLyrics returns the fraction of distinct words in cand that appear anywhere in ref,
// rounded to 4 decimals. Order and repetition are ignored.
func CompareLyrics(ref, cand string) float64 {
	candTokens := tokenSet(NormalizeLyrics(cand))
	if len(candTokens) == 0 {
		return 0
	}
	refTokens := tokenSet(NormalizeLyrics(ref))

	hits := 0
	for w := range candTokens {
		if _, ok := refTokens[w]; ok {
			hits++
		}
	}

	score := float64(hits) / float64(len(candTokens))
	return math.Round(score*10000) / 10000
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
