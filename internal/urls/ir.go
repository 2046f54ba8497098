package urls

import (
	"strings"
)

// IRSuffixes are the investor-relations paths where issuers publish ratings.
var IRSuffixes = []string{
	"/credit-ratings",
	"/debt-ratings",
	"/investors/credit-ratings",
	"/investor-relations/credit-ratings",
	"/investors/fixed-income",
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "e": {}, "y": {},
	"de": {}, "do": {}, "da": {}, "dos": {}, "das": {}, "del": {}, "la": {},
	"le": {}, "group": {}, "grupo": {}, "companhia": {}, "compania": {},
	"holding": {}, "holdings": {}, "cia": {},
}

// IRGuesser maps a company name to investor-relations candidate URLs.
type IRGuesser struct {
	table *Table
}

// NewIRGuesser creates a guesser over a lookup table.
func NewIRGuesser(t *Table) *IRGuesser {
	if t == nil {
		t = DefaultTable()
	}
	return &IRGuesser{table: t}
}

// Domain returns the best-guess corporate domain for name, or "".
func (g *IRGuesser) Domain(name string) string {
	if e, ok := g.table.Lookup(name); ok && e.IRDomain != "" {
		return e.IRDomain
	}
	key := keyOf(name)
	if d, ok := g.table.IRDomains[key]; ok {
		return d
	}
	for _, w := range strings.Fields(key) {
		if _, stop := stopWords[w]; stop || len(w) < 2 {
			continue
		}
		return w + ".com"
	}
	return ""
}

// Guess returns the IR candidate URLs for name.
func (g *IRGuesser) Guess(name string) []string {
	d := g.Domain(name)
	if d == "" {
		return nil
	}
	out := make([]string, 0, len(IRSuffixes))
	for _, s := range IRSuffixes {
		out = append(out, "https://"+d+s)
	}
	return out
}
