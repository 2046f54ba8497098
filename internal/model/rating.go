package model

import "time"

// Agency identifies a credit rating agency.
type Agency string

const (
	AgencySP     Agency = "S&P Global"
	AgencyFitch  Agency = "Fitch Ratings"
	AgencyMoodys Agency = "Moody's"
)

// AllAgencies returns the supported agencies in response order.
func AllAgencies() []Agency {
	return []Agency{AgencySP, AgencyFitch, AgencyMoodys}
}

// Scale returns the global rating scale the agency publishes on.
func (a Agency) Scale() Scale {
	if a == AgencyMoodys {
		return ScaleMoodys
	}
	return ScaleSPFitch
}

// Scale is the rating vocabulary family a raw token belongs to.
type Scale string

const (
	ScaleSPFitch Scale = "SP_FITCH"
	ScaleMoodys  Scale = "MOODYS"
	ScaleLocal   Scale = "LOCAL"
)

// Outlook is the agency-declared directional signal.
type Outlook string

const (
	OutlookPositive   Outlook = "Positive"
	OutlookStable     Outlook = "Stable"
	OutlookNegative   Outlook = "Negative"
	OutlookDeveloping Outlook = "Developing"
	OutlookWatch      Outlook = "Watch"
)

// AllOutlooks returns every accepted outlook value.
func AllOutlooks() []Outlook {
	return []Outlook{OutlookPositive, OutlookStable, OutlookNegative, OutlookDeveloping, OutlookWatch}
}

// Method records which stage produced a rating entry.
type Method string

const (
	MethodPattern    Method = "pattern"
	MethodGenerative Method = "generative"
	MethodVendor     Method = "vendor"
)

// RatingEntry is a single agency rating with provenance.
type RatingEntry struct {
	Agency          Agency     `json:"agency"`
	RatingRaw       string     `json:"rating_raw"`
	Outlook         Outlook    `json:"outlook,omitempty"`
	AsOf            *time.Time `json:"as_of,omitempty"`
	Scale           Scale      `json:"scale"`
	Confidence      float64    `json:"confidence"`
	SourceRef       string     `json:"source_ref"`
	NormalizedScore *int       `json:"normalized_score"`
	Method          Method     `json:"method,omitempty"`
}
