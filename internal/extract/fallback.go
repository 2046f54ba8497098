package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rating-finder/internal/llm"
	"github.com/sells-group/rating-finder/internal/model"
	"github.com/sells-group/rating-finder/internal/rating"
)

var validate = validator.New()

// modelOutput is the fixed schema the model must answer with.
type modelOutput struct {
	Found       bool    `json:"found"`
	Rating      string  `json:"rating,omitempty" validate:"required_if=Found true,max=16"`
	Outlook     string  `json:"outlook,omitempty" validate:"omitempty,oneof=Positive Stable Negative Developing Watch N/A"`
	Confidence  float64 `json:"confidence" validate:"gte=0,lte=1"`
	CompanyName string  `json:"companyName,omitempty" validate:"max=200"`
}

const systemRules = `You extract one credit rating from web page text.

Rules:
1. Check that the text is about the named company. If it is not, answer found=false.
2. Only consider ratings issued by the named agency.
3. Extract the token immediately following a rating label such as "Long-Term Rating", "Issuer Default Rating", "IDR", "Issuer Credit Rating", "Corporate Family Rating", "Issuer Rating", or a rating action such as "upgrades ... to", "affirms ... at".
4. The rating must be copied exactly and must be a member of the vocabulary given. Never invent or convert a rating.
5. outlook is one of Positive, Stable, Negative, Developing, Watch, or N/A when none is stated.
6. confidence is between 0 and 1: 0.9 or more for an explicit label next to the company name, around 0.6 for an indirect mention, below 0.4 when unsure.

Answer with a single JSON object and nothing else:
{"found": bool, "rating": string, "outlook": string, "confidence": number, "companyName": string}`

func buildPrompt(text string, agency model.Agency, company string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", company)
	fmt.Fprintf(&b, "Agency: %s\n", agency)
	fmt.Fprintf(&b, "Vocabulary: %s\n", strings.Join(rating.ForAgency(agency), ", "))
	b.WriteString("National-scale variants such as AA(bra), brAA+ or Aa1.br are also accepted.\n\n")
	b.WriteString("Text:\n")
	b.WriteString(text)
	return b.String()
}

func (e *Extractor) fallback(ctx context.Context, text string, agency model.Agency, company string) Result {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	raw, err := e.opts.LLM.Generate(ctx, llm.Request{
		System:    systemRules,
		Prompt:    buildPrompt(truncate(text, e.opts.MaxChars), agency, company),
		MaxTokens: 256,
		JSON:      true,
	})
	if err != nil {
		zap.L().Debug("extract: fallback call failed",
			zap.String("agency", string(agency)),
			zap.Error(err),
		)
		return Result{}
	}

	out, err := parseOutput(raw)
	if err != nil {
		zap.L().Debug("extract: fallback output rejected",
			zap.String("agency", string(agency)),
			zap.Error(err),
		)
		return Result{}
	}
	res := e.accept(out, agency)
	if res.Found {
		res.AsOf, _ = findDate(text)
	}
	return res
}

// parseOutput decodes the model's answer strictly against the schema.
func parseOutput(raw string) (modelOutput, error) {
	var out modelOutput
	dec := json.NewDecoder(bytes.NewReader([]byte(llm.CleanJSON(raw))))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return modelOutput{}, eris.Wrap(err, "extract: decode model output")
	}
	if err := validate.Struct(out); err != nil {
		return modelOutput{}, eris.Wrap(err, "extract: model output schema")
	}
	return out, nil
}

// accept applies the vocabulary gate and confidence threshold.
func (e *Extractor) accept(out modelOutput, agency model.Agency) Result {
	if !out.Found {
		return Result{Confidence: out.Confidence}
	}
	tok := strings.TrimSpace(out.Rating)
	scale, ok := rating.ClassifyToken(tok, agency)
	if !ok {
		zap.L().Debug("extract: model rating outside vocabulary",
			zap.String("agency", string(agency)),
			zap.String("rating", out.Rating),
		)
		return Result{}
	}
	if out.Confidence < e.opts.ConfidenceThreshold {
		return Result{Confidence: out.Confidence}
	}

	res := Result{
		Found:       true,
		Rating:      tok,
		Scale:       scale,
		Confidence:  out.Confidence,
		Method:      model.MethodGenerative,
		CompanyName: out.CompanyName,
	}
	if o, ok := rating.ParseOutlook(out.Outlook); ok {
		res.Outlook = o
	}
	return res
}
