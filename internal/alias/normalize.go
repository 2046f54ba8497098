// Package alias expands a company query into the name variants searched by
// the evidence stage.
package alias

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes holds normalized (lowercase, dots and commas removed) legal
// form tokens stripped from the end of a name.
var legalSuffixes = map[string]struct{}{
	"inc": {}, "incorporated": {}, "corp": {}, "corporation": {}, "co": {},
	"company": {}, "ltd": {}, "limited": {}, "llc": {}, "lp": {}, "llp": {},
	"plc": {}, "sa": {}, "s/a": {}, "sab": {}, "ag": {}, "se": {}, "gmbh": {},
	"nv": {}, "bv": {}, "spa": {}, "srl": {}, "ltda": {}, "cia": {}, "kk": {},
	"pty": {}, "oyj": {}, "asa": {},
}

func suffixToken(tok string) string {
	return strings.ToLower(strings.NewReplacer(".", "", ",", "").Replace(tok))
}

// StripSuffixes removes trailing legal-form tokens ("Inc.", "S.A.", "GmbH",
// "S.A.B. de C.V.") and dangling separators. At least one word is kept.
func StripSuffixes(name string) string {
	words := strings.Fields(name)
	for len(words) > 1 {
		last := suffixToken(words[len(words)-1])
		if last == "" || last == "-" || last == "&" {
			words = words[:len(words)-1]
			continue
		}
		if last == "cv" && len(words) > 2 && suffixToken(words[len(words)-2]) == "de" {
			words = words[:len(words)-2]
			continue
		}
		if _, ok := legalSuffixes[last]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	out := strings.Join(words, " ")
	return strings.TrimRight(out, ",;- ")
}

// Fold removes diacritics: "Petróleo Brasileiro" becomes "Petroleo Brasileiro".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Key returns a comparison key: folded, lowercase, suffix-stripped and with
// punctuation collapsed to single spaces.
func Key(name string) string {
	s := strings.ToLower(Fold(StripSuffixes(strings.TrimSpace(name))))
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space && b.Len() > 0 {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Words splits a name into words with surrounding punctuation trimmed.
func Words(name string) []string {
	var out []string
	for _, w := range strings.Fields(name) {
		w = strings.Trim(w, ",;:()\"'")
		if w != "" && w != "-" && w != "&" {
			out = append(out, w)
		}
	}
	return out
}
