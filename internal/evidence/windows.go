package evidence

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/rating-finder/internal/model"
)

// ratingKeywordRe matches text likely to state a credit rating.
var ratingKeywordRe = regexp.MustCompile(`(?i)\b(rating|ratings|rated|outlook|upgrade[sd]?|downgrade[sd]?|affirm(s|ed)?|IDR|issuer credit|corporate family|creditwatch|rating watch|investment grade|S&P|Fitch|Moody's|perspectiva|classifica[cç][aã]o|rating de cr[eé]dito)\b`)

// HasRatingKeyword reports whether text mentions rating vocabulary.
func HasRatingKeyword(text string) bool {
	return ratingKeywordRe.MatchString(text)
}

// Split groups consecutive blocks into windows of at most maxChars runes,
// tags each with the candidate's URL and agency, and keeps only windows that
// mention a rating keyword. At most limit windows are returned.
func Split(blocks []string, c model.Candidate, maxChars, limit int) []model.EvidenceWindow {
	if limit <= 0 {
		return nil
	}
	var (
		out []model.EvidenceWindow
		cur strings.Builder
	)
	flush := func() {
		text := strings.TrimSpace(cur.String())
		cur.Reset()
		if text != "" && HasRatingKeyword(text) && len(out) < limit {
			out = append(out, model.EvidenceWindow{URL: c.URL, Text: text, Agency: c.Agency})
		}
	}

	for _, blk := range blocks {
		for _, piece := range chunk(blk, maxChars) {
			if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+1+utf8.RuneCountInString(piece) > maxChars {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteByte('\n')
			}
			cur.WriteString(piece)
		}
		if len(out) >= limit {
			return out
		}
	}
	flush()
	return out
}

// chunk splits s into pieces of at most n runes, preferring sentence and
// word boundaries.
func chunk(s string, n int) []string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return []string{s}
	}
	var out []string
	runes := []rune(s)
	for len(runes) > n {
		cut := n
		for i := n; i > n/2; i-- {
			if runes[i-1] == '.' && runes[i] == ' ' {
				cut = i
				break
			}
		}
		if cut == n {
			for i := n; i > n/2; i-- {
				if runes[i] == ' ' {
					cut = i
					break
				}
			}
		}
		out = append(out, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		out = append(out, rest)
	}
	return out
}
