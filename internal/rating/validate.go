package rating

import (
	"math"
	"strings"
	"time"

	"github.com/sells-group/rating-finder/internal/model"
)

// DefaultMaxAge is the freshness window for dated ratings.
const DefaultMaxAge = 365 * 24 * time.Hour

// Options tunes validation. The zero value validates against time.Now with
// the default freshness window and no date requirement.
type Options struct {
	RequireDate bool
	MaxAge      time.Duration
	Now         func() time.Time
}

// Validate checks an entry against the rating domain. Domain, outlook, source
// and date-presence problems are merged into one PARSING failure; a stale
// date returns a STALE failure immediately.
func Validate(entry model.RatingEntry, opts Options) error {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	var msgs []string

	if !IsValid(entry.RatingRaw, entry.Scale) {
		msgs = append(msgs, "rating "+quote(entry.RatingRaw)+" is not in the "+string(entry.Scale)+" vocabulary")
	}

	if entry.Outlook != "" && !IsValidOutlook(entry.Outlook) {
		msgs = append(msgs, "outlook "+quote(string(entry.Outlook))+" is not a recognized outlook")
	}

	if strings.TrimSpace(entry.SourceRef) == "" {
		msgs = append(msgs, "source reference is missing")
	}

	if entry.AsOf != nil {
		current := now()
		if entry.AsOf.After(current) {
			msgs = append(msgs, "rating date "+entry.AsOf.Format("2006-01-02")+" is in the future")
		} else if age := current.Sub(*entry.AsOf); age > maxAge {
			days := int(math.Floor(age.Hours() / 24))
			return &Failure{
				Kind:    KindStale,
				Message: "rating dated " + entry.AsOf.Format("2006-01-02") + " is older than the freshness window",
				AgeDays: days,
			}
		}
	} else if opts.RequireDate {
		msgs = append(msgs, "rating date is required")
	}

	if len(msgs) > 0 {
		return &Failure{Kind: KindParsing, Messages: msgs}
	}
	return nil
}

// ValidateRating checks a single token against the named scale. The scale
// may be given as a Scale constant or as a display label ("SP/Fitch",
// "S&P/Fitch", "Moody's").
func ValidateRating(raw, scale string) error {
	s := ParseScale(scale)
	if s == "" || !IsValid(raw, s) {
		return &Failure{Kind: KindParsing, Messages: []string{"rating " + quote(raw) + " is not valid for scale " + quote(scale)}}
	}
	return nil
}

// ParseScale maps a scale label to its constant, or "" when unknown.
func ParseScale(s string) model.Scale {
	switch strings.ToUpper(strings.NewReplacer(" ", "", "'", "", "&", "", "/", "_").Replace(strings.TrimSpace(s))) {
	case "SP_FITCH", "SPFITCH", "FITCH_SP":
		return model.ScaleSPFitch
	case "MOODYS":
		return model.ScaleMoodys
	case "LOCAL":
		return model.ScaleLocal
	default:
		return ""
	}
}

func quote(s string) string { return `"` + s + `"` }
