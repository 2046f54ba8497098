package urls

import (
	"net/url"
	"strings"

	"github.com/sells-group/rating-finder/internal/model"
)

// Constructor builds agency candidate URLs.
type Constructor struct {
	table *Table
}

// NewConstructor creates a constructor over a lookup table.
func NewConstructor(t *Table) *Constructor {
	if t == nil {
		t = DefaultTable()
	}
	return &Constructor{table: t}
}

// SearchURL returns the agency's public search page for term.
func SearchURL(a model.Agency, term string) string {
	q := url.QueryEscape(strings.TrimSpace(term))
	switch a {
	case model.AgencyFitch:
		return "https://www.fitchratings.com/search?query=" + q + "&content=Issuer"
	case model.AgencySP:
		return "https://www.spglobal.com/ratings/en/search/results?search=" + q
	case model.AgencyMoodys:
		return "https://www.moodys.com/search?q=" + q + "&type=issuer"
	default:
		return ""
	}
}

// ForCompany returns candidate URLs per agency: the known entity page first,
// then the search page for the name, then for the ticker.
func (c *Constructor) ForCompany(name, ticker string) map[model.Agency][]string {
	out := make(map[model.Agency][]string, 3)
	name = strings.TrimSpace(name)
	ticker = strings.TrimSpace(ticker)
	if name == "" && ticker == "" {
		return out
	}

	known, _ := c.table.Lookup(name)
	for _, a := range model.AllAgencies() {
		var list []string
		if known != nil {
			if u := known.URLs[a]; u != "" {
				list = append(list, u)
			}
		}
		if name != "" {
			list = append(list, SearchURL(a, name))
		}
		if ticker != "" && !strings.EqualFold(ticker, name) {
			list = append(list, SearchURL(a, strings.ToUpper(ticker)))
		}
		out[a] = list
	}
	return out
}
