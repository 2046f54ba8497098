// Package rating holds the agency rating vocabularies, the ordinal
// normalizer and the domain validator.
package rating

import (
	"regexp"
	"strings"

	"github.com/sells-group/rating-finder/internal/model"
)

// spFitchVocabulary is the S&P / Fitch long-term scale, best to worst.
var spFitchVocabulary = []string{
	"AAA",
	"AA+", "AA", "AA-",
	"A+", "A", "A-",
	"BBB+", "BBB", "BBB-",
	"BB+", "BB", "BB-",
	"B+", "B", "B-",
	"CCC+", "CCC", "CCC-",
	"CC", "C", "D",
}

// moodysVocabulary is the Moody's long-term scale, best to worst.
var moodysVocabulary = []string{
	"Aaa",
	"Aa1", "Aa2", "Aa3",
	"A1", "A2", "A3",
	"Baa1", "Baa2", "Baa3",
	"Ba1", "Ba2", "Ba3",
	"B1", "B2", "B3",
	"Caa1", "Caa2", "Caa3",
	"Ca", "C",
}

var (
	spFitchSet = toSet(spFitchVocabulary)
	moodysSet  = toSet(moodysVocabulary)
)

func toSet(tokens []string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// Vocabulary returns the ordered token list for a scale. LOCAL ratings are
// expressed with the global tokens plus a national marker, so the union of
// both global scales is returned for it.
func Vocabulary(scale model.Scale) []string {
	switch scale {
	case model.ScaleSPFitch:
		return append([]string(nil), spFitchVocabulary...)
	case model.ScaleMoodys:
		return append([]string(nil), moodysVocabulary...)
	case model.ScaleLocal:
		out := append([]string(nil), spFitchVocabulary...)
		return append(out, moodysVocabulary...)
	default:
		return nil
	}
}

// ForAgency returns the global vocabulary the agency publishes on.
func ForAgency(a model.Agency) []string {
	return Vocabulary(a.Scale())
}

// IsValid reports whether raw is a member of the scale's vocabulary.
// Matching is exact after trimming whitespace.
func IsValid(raw string, scale model.Scale) bool {
	raw = strings.TrimSpace(raw)
	switch scale {
	case model.ScaleSPFitch:
		_, ok := spFitchSet[raw]
		return ok
	case model.ScaleMoodys:
		_, ok := moodysSet[raw]
		return ok
	case model.ScaleLocal:
		_, ok := SplitLocal(raw)
		return ok
	default:
		return false
	}
}

var (
	// AA(bra), A+(mex), Baa1(arg)
	localParenRe = regexp.MustCompile(`^([A-Za-z]{1,4}[0-9]?[+-]?)\(([a-z]{2,4})\)$`)
	// brAA+, mxA-
	localPrefixRe = regexp.MustCompile(`^([a-z]{2})([A-Z]{1,3}[+-]?)$`)
	// AAA.br, Aa1.br
	localSuffixRe = regexp.MustCompile(`^([A-Za-z]{1,4}[0-9]?[+-]?)\.([a-z]{2})$`)
)

// SplitLocal recognizes a national-scale rating such as "AA(bra)", "brAA+"
// or "Aa1.br" and returns the embedded global token.
func SplitLocal(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, re := range []*regexp.Regexp{localParenRe, localSuffixRe} {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1], isGlobal(m[1])
		}
	}
	if m := localPrefixRe.FindStringSubmatch(raw); m != nil {
		return m[2], isGlobal(m[2])
	}
	return "", false
}

func isGlobal(token string) bool {
	_, sp := spFitchSet[token]
	_, md := moodysSet[token]
	return sp || md
}

// ClassifyToken resolves the scale of a candidate token published by the
// given agency. ok is false when the token is not a rating.
func ClassifyToken(token string, agency model.Agency) (model.Scale, bool) {
	token = strings.TrimSpace(token)
	if IsValid(token, agency.Scale()) {
		return agency.Scale(), true
	}
	if IsValid(token, model.ScaleLocal) {
		return model.ScaleLocal, true
	}
	return "", false
}

// ParseOutlook maps free text to an outlook. Empty and "N/A" are absent.
func ParseOutlook(s string) (model.Outlook, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "pos", "positivo", "positiva":
		return model.OutlookPositive, true
	case "stable", "sta", "stb", "estável", "estavel":
		return model.OutlookStable, true
	case "negative", "neg", "negativo", "negativa":
		return model.OutlookNegative, true
	case "developing", "dev", "evolving":
		return model.OutlookDeveloping, true
	case "watch", "creditwatch", "rating watch", "on watch", "under review":
		return model.OutlookWatch, true
	default:
		return "", false
	}
}

// IsValidOutlook reports whether o is a member of the outlook set.
func IsValidOutlook(o model.Outlook) bool {
	for _, v := range model.AllOutlooks() {
		if o == v {
			return true
		}
	}
	return false
}
