package rating

import (
	"strings"

	"github.com/sells-group/rating-finder/internal/model"
)

// Ordinal tables: 22 is the highest credit quality, 1 is default. Moody's
// tokens share the ordinal of their S&P/Fitch equivalent.
var spFitchScores = map[string]int{
	"AAA": 22,
	"AA+": 21, "AA": 20, "AA-": 19,
	"A+": 18, "A": 17, "A-": 16,
	"BBB+": 15, "BBB": 14, "BBB-": 13,
	"BB+": 12, "BB": 11, "BB-": 10,
	"B+": 9, "B": 8, "B-": 7,
	"CCC+": 6, "CCC": 5, "CCC-": 4,
	"CC": 3, "C": 2, "D": 1,
}

var moodysScores = map[string]int{
	"Aaa": 22,
	"Aa1": 21, "Aa2": 20, "Aa3": 19,
	"A1": 18, "A2": 17, "A3": 16,
	"Baa1": 15, "Baa2": 14, "Baa3": 13,
	"Ba1": 12, "Ba2": 11, "Ba3": 10,
	"B1": 9, "B2": 8, "B3": 7,
	"Caa1": 6, "Caa2": 5, "Caa3": 4,
	"Ca": 3, "C": 2,
}

// Normalize maps a raw token on the given scale to its ordinal score.
// LOCAL scales and unknown tokens return nil; national ratings are not
// comparable across countries and are never coerced.
func Normalize(raw string, scale model.Scale) *int {
	raw = strings.TrimSpace(raw)
	var table map[string]int
	switch scale {
	case model.ScaleSPFitch:
		table = spFitchScores
	case model.ScaleMoodys:
		table = moodysScores
	default:
		return nil
	}
	score, ok := table[raw]
	if !ok {
		return nil
	}
	return &score
}
