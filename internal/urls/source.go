package urls

import (
	"github.com/sells-group/rating-finder/internal/alias"
	"github.com/sells-group/rating-finder/internal/model"
)

func keyOf(name string) string { return alias.Key(name) }

// Source produces the candidate URLs for one query. It satisfies the
// evidence orchestrator's candidate source contract.
type Source struct {
	c      *Constructor
	g      *IRGuesser
	ticker string
	// Agencies restricts agency pages; nil means all.
	Agencies []model.Agency
}

// NewSource binds a constructor and guesser to a query's ticker.
func NewSource(c *Constructor, g *IRGuesser, ticker string) *Source {
	return &Source{c: c, g: g, ticker: ticker}
}

// Candidates returns agency pages (in agency order) followed by IR guesses
// for one alias.
func (s *Source) Candidates(name string) []model.Candidate {
	agencies := s.Agencies
	if agencies == nil {
		agencies = model.AllAgencies()
	}
	byAgency := s.c.ForCompany(name, s.ticker)

	var out []model.Candidate
	for _, a := range agencies {
		for _, u := range byAgency[a] {
			out = append(out, model.Candidate{URL: u, Agency: a})
		}
	}
	for _, u := range s.g.Guess(name) {
		out = append(out, model.Candidate{URL: u})
	}
	return out
}
