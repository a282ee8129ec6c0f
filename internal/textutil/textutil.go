// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textutil normalizes names for comparison: case folding, accent
// stripping, punctuation and whitespace cleanup, and edit distance.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	folder = cases.Fold()
	titler = cases.Title(language.English)
)

// stripMarks decomposes and removes combining marks ("Björk" -> "Bjork").
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize folds case, strips accents, maps "&" to "and", drops
// punctuation, and collapses whitespace.
func Normalize(s string) string {
	s = stripMarks(folder.String(s))
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case r == '\'' || r == '’' || r == '.':
			// "Guns N' Roses", "R.E.M." keep their letters together.
		default:
			space = true
		}
	}
	return b.String()
}

// CollapseSpace trims s and replaces each whitespace run with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TitleCase capitalizes each word of s.
func TitleCase(s string) string {
	return titler.String(strings.ToLower(CollapseSpace(s)))
}

// skeletonRules reduce common spelling variants to one form. Applied in order.
var skeletonRules = strings.NewReplacer(
	"ph", "f",
	"ck", "k",
	"qu", "kw",
	"kh", "k",
	"ch", "k",
	"sh", "s",
	"th", "t",
	"dh", "d",
	"gh", "g",
	"x", "ks",
	"y", "i",
	"z", "s",
	"w", "v",
	"c", "k",
	"q", "k",
	"j", "i",
)

// Skeleton returns a phonetic-ish key for a normalized name: digraphs and
// look-alike letters are unified, doubled letters and spaces removed. Two
// transliterations of the same name usually share a skeleton.
func Skeleton(normalized string) string {
	s := skeletonRules.Replace(strings.ReplaceAll(normalized, " ", ""))
	var b strings.Builder
	var prev rune
	for _, r := range s {
		if r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// Levenshtein returns the edit distance between a and b counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// ContainsWord reports whether any of words appears in s as a whole word.
// Both sides are compared after normalization.
func ContainsWord(s string, words ...string) bool {
	padded := " " + Normalize(s) + " "
	for _, w := range words {
		if strings.Contains(padded, " "+Normalize(w)+" ") {
			return true
		}
	}
	return false
}
