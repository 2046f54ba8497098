// Package extract turns an evidence window into a rating for one agency:
// deterministic label and rating-action patterns first, then a constrained
// generative fallback.
package extract

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/rating-finder/internal/llm"
	"github.com/sells-group/rating-finder/internal/model"
)

// PatternConfidence is assigned to every deterministic match.
const PatternConfidence = 0.85

// MinInputChars is the shortest window either stage will look at.
const MinInputChars = 20

// Result is the outcome of one extraction. When Found is false the other
// fields are zero except Confidence, which may carry the model's own score.
type Result struct {
	Found       bool
	Rating      string
	Scale       model.Scale
	Outlook     model.Outlook
	AsOf        *time.Time
	Confidence  float64
	Method      model.Method
	CompanyName string
}

// Entry converts a found result into a rating entry attributed to sourceRef.
func (r Result) Entry(agency model.Agency, sourceRef string) model.RatingEntry {
	return model.RatingEntry{
		Agency:     agency,
		RatingRaw:  r.Rating,
		Outlook:    r.Outlook,
		AsOf:       r.AsOf,
		Scale:      r.Scale,
		Confidence: r.Confidence,
		SourceRef:  sourceRef,
		Method:     r.Method,
	}
}

// Options configures the extractor. Zero values take the defaults.
type Options struct {
	// LLM is the fallback model; nil disables the fallback stage.
	LLM                 llm.Client
	MaxChars            int
	ConfidenceThreshold float64
	Timeout             time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = 6000
	}
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = 0.6
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// Extractor runs the two extraction stages.
type Extractor struct {
	opts Options
}

// New creates an extractor.
func New(opts Options) *Extractor {
	return &Extractor{opts: opts.withDefaults()}
}

// Extract looks for agency's rating of company in the window. It never
// returns an error; failures of the fallback stage yield a not-found result.
func (e *Extractor) Extract(ctx context.Context, w model.EvidenceWindow, agency model.Agency, company string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("extract: panic recovered",
				zap.String("url", w.URL),
				zap.String("agency", string(agency)),
				zap.Any("panic", r),
			)
			res = Result{}
		}
	}()

	text := strings.TrimSpace(w.Text)
	if utf8.RuneCountInString(text) < MinInputChars {
		return Result{}
	}

	if res, ok := e.pattern(text, agency, w.Agency != agency); ok {
		return res
	}

	if e.opts.LLM == nil || !takeCall(ctx) {
		return Result{}
	}
	return e.fallback(ctx, text, agency, company)
}

func (e *Extractor) pattern(text string, agency model.Agency, requireMention bool) (Result, bool) {
	m, ok := findRating(text, agency, requireMention)
	if !ok {
		return Result{}, false
	}
	res := Result{
		Found:      true,
		Rating:     m.token,
		Scale:      m.scale,
		Confidence: PatternConfidence,
		Method:     model.MethodPattern,
	}
	// Prefer the outlook and date stated after the rating.
	tail := text[m.start:]
	if o, ok := findOutlook(tail); ok {
		res.Outlook = o
	} else if o, ok := findOutlook(text); ok {
		res.Outlook = o
	}
	if d, ok := findDate(tail); ok {
		res.AsOf = d
	} else if d, ok := findDate(text); ok {
		res.AsOf = d
	}
	return res, true
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
