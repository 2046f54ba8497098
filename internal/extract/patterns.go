package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/rating-finder/internal/model"
	"github.com/sells-group/rating-finder/internal/rating"
)

// token captures a global or national-scale rating: AA-, Baa2, AA(bra),
// brAA+, Aa1.br. Membership is checked against the vocabulary afterwards.
const token = `((?:[a-z]{2})?[A-Za-z]{1,4}[0-9]?[+-]?(?:\([a-z]{2,4}\)|\.[a-z]{2})?)(?:[^A-Za-z0-9+\-]|$)`

// sep sits between a label and its token: "Rating: AA-", "IDR of BBB+",
// "rating - A".
const sep = `[\s:\x{2013}-]*(?:(?i:is|of|at)\s+)?` + quote

// quote is the optional opening quote around a token ("at 'BBB-'").
const quote = `['"\x{2018}\x{2019}\x{201C}\x{201D}]?`

func labelRe(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i:\b` + label + `)` + sep + token)
}

var commonLabels = []*regexp.Regexp{
	labelRe(`long[- ]term(?:\s+(?:issuer|foreign[- ]currency|local[- ]currency))?\s+(?:issuer\s+)?(?:credit\s+)?rating`),
	labelRe(`credit\s+rating`),
}

var agencyLabels = map[model.Agency][]*regexp.Regexp{
	model.AgencySP: {
		labelRe(`issuer\s+credit\s+rating`),
		labelRe(`corporate\s+credit\s+rating`),
		labelRe(`ICR`),
	},
	model.AgencyFitch: {
		labelRe(`(?:long[- ]term\s+)?(?:foreign[- ]currency\s+|local[- ]currency\s+)?issuer\s+default\s+rating`),
		labelRe(`(?:long[- ]term\s+)?IDR`),
		labelRe(`national\s+long[- ]term\s+rating`),
	},
	model.AgencyMoodys: {
		labelRe(`corporate\s+family\s+rating`),
		labelRe(`CFR`),
		labelRe(`(?:long[- ]term\s+|LT\s+)?issuer\s+rating`),
		labelRe(`senior\s+unsecured(?:\s+(?:debt\s+)?rating)?`),
	},
}

// ratedRe and actionRe match prose such as "rated AA-" and
// "S&P upgrades Petrobras to BBB-".
var (
	ratedRe  = regexp.MustCompile(`(?i:\brated)\s+` + quote + token)
	actionRe = regexp.MustCompile(`(?i:\b(?:upgrade[sd]?|downgrade[sd]?|raise[sd]?|lower(?:s|ed)?|assign(?:s|ed)?|affirm(?:s|ed)?|confirm(?:s|ed)?)\b[^.;\n]{0,120}?\b(?:to|at))\s+` + quote + token)
)

var agencyMentionRe = map[model.Agency]*regexp.Regexp{
	model.AgencySP:     regexp.MustCompile(`(?i)\b(?:S&P|S&amp;P|Standard\s*(?:&|and)\s*Poor'?s)`),
	model.AgencyFitch:  regexp.MustCompile(`(?i)\bFitch\b`),
	model.AgencyMoodys: regexp.MustCompile(`(?i)\bMoody'?s\b`),
}

// mentionWindow is how far before a match the agency name may appear.
const mentionWindow = 120

type match struct {
	token string
	scale model.Scale
	start int
}

// findRating runs the label patterns, then the prose patterns, and returns
// the first captured token that belongs to the agency's vocabulary. When
// requireMention is set the agency must be named shortly before the match.
// A match whose clause names only other agencies is never attributed to
// agency, hinted window or not.
func findRating(text string, agency model.Agency, requireMention bool) (match, bool) {
	groups := [][]*regexp.Regexp{agencyLabels[agency], commonLabels, {ratedRe, actionRe}}
	for _, group := range groups {
		for _, re := range group {
			for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
				tok := text[idx[2]:idx[3]]
				scale, ok := rating.ClassifyToken(tok, agency)
				if !ok {
					continue
				}
				if requireMention && !mentioned(text, idx[0], agency) {
					continue
				}
				if namesOtherAgency(clause(text, idx[0], idx[3]), agency) {
					continue
				}
				return match{token: tok, scale: scale, start: idx[0]}, true
			}
		}
	}
	return match{}, false
}

func mentioned(text string, at int, agency model.Agency) bool {
	re, ok := agencyMentionRe[agency]
	if !ok {
		return false
	}
	from := max(0, at-mentionWindow)
	end := min(len(text), at+mentionWindow)
	return re.MatchString(text[from:end])
}

// namesOtherAgency reports whether s names an agency other than agency
// without naming agency itself.
func namesOtherAgency(s string, agency model.Agency) bool {
	if re, ok := agencyMentionRe[agency]; ok && re.MatchString(s) {
		return false
	}
	for a, re := range agencyMentionRe {
		if a != agency && re.MatchString(s) {
			return true
		}
	}
	return false
}

// clause returns the sentence around text[start:end], bounded by ';', a
// newline or a full stop followed by a space, and by mentionWindow either way.
func clause(text string, start, end int) string {
	from := max(0, start-mentionWindow)
	for i := start - 1; i >= from; i-- {
		if isClauseBreak(text, i) {
			from = i + 1
			break
		}
	}
	to := min(len(text), end+mentionWindow)
	for i := end; i < to; i++ {
		if isClauseBreak(text, i) {
			to = i
			break
		}
	}
	return strings.TrimSpace(text[from:to])
}

func isClauseBreak(text string, i int) bool {
	switch text[i] {
	case ';', '\n':
		return true
	case '.':
		return i+1 == len(text) || text[i+1] == ' '
	}
	return false
}

var outlookRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\boutlook(?:\s+(?:is|remains|was|revised\s+to|to))?[\s:]+(positive|stable|negative|developing|evolving)\b`),
	regexp.MustCompile(`(?i)\b(positive|stable|negative|developing|evolving)\s+outlook\b`),
	regexp.MustCompile(`(?i)\bperspectiva(?:\s+(?:é|e))?[\s:]+(positiva|est[aá]vel|negativa)\b`),
	regexp.MustCompile(`(?i)\b(creditwatch|rating\s+watch|on\s+watch|under\s+review)\b`),
}

// findOutlook returns the first outlook stated in text.
func findOutlook(text string) (model.Outlook, bool) {
	for _, re := range outlookRes {
		if m := re.FindStringSubmatch(text); m != nil {
			word := strings.Join(strings.Fields(m[1]), " ")
			if o, ok := rating.ParseOutlook(word); ok {
				return o, true
			}
		}
	}
	return "", false
}

var (
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+(\d{4})\b`)
	monthDayYearRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{4})\b`)
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// findDate returns the first calendar date in text, in UTC.
func findDate(text string) (*time.Time, bool) {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if t, ok := mkDate(m[1], months[monthAbbr(m[2])], m[3]); ok {
			return t, true
		}
	}
	if m := dayMonthYearRe.FindStringSubmatch(text); m != nil {
		if t, ok := mkDate(m[3], months[strings.ToLower(m[2])], m[1]); ok {
			return t, true
		}
	}
	if m := monthDayYearRe.FindStringSubmatch(text); m != nil {
		if t, ok := mkDate(m[3], months[strings.ToLower(m[1])], m[2]); ok {
			return t, true
		}
	}
	return nil, false
}

// monthAbbr maps "01".."12" to the month key.
func monthAbbr(mm string) string {
	n, err := strconv.Atoi(mm)
	if err != nil || n < 1 || n > 12 {
		return ""
	}
	return strings.ToLower(time.Month(n).String()[:3])
}

func mkDate(year string, month time.Month, day string) (*time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || month == 0 {
		return nil, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return nil, false
	}
	t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != month {
		return nil, false
	}
	return &t, true
}
