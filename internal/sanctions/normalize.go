package sanctions

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Normalize folds a name for comparison: compatibility-decomposed, diacritics
// removed, lower-cased, punctuation turned into separators, whitespace collapsed.
func Normalize(name string) string {
	t := transform.Chain(norm.NFKD, stripMarks, norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// sortedTokens orders the tokens of a normalized name so that
// "smith john" and "john smith" compare equal.
func sortedTokens(normalized string) string {
	tokens := strings.Fields(normalized)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Similarity is 1 - levenshtein(a,b)/max(len(a),len(b)) over runes.
// Identical strings score 1; an empty side scores 0.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if la == 0 || lb == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(maxLen)
}

// nameScore compares two normalized names directly and token-sorted,
// returning the better of the two.
func nameScore(query, queryTokens string, candidate compiledName) float64 {
	direct := Similarity(query, candidate.normalized)
	if direct == 1 {
		return 1
	}
	sorted := Similarity(queryTokens, candidate.tokens)
	if sorted > direct {
		return sorted
	}
	return direct
}
