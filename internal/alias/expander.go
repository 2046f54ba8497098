package alias

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/rating-finder/internal/llm"
	"github.com/sells-group/rating-finder/internal/model"
)

const augmentSystem = `You list alternative names under which a company's credit ratings are published.
Return ONLY a JSON array of strings (at most 5): legal name, common short name, former names, local-language name.
Do not include explanations. If unsure, return [].`

// Options configures the expander.
type Options struct {
	// MaxAliases caps the total set. The deterministic variants are never cut.
	MaxAliases int
	// LLM, when non-nil, supplements the deterministic set.
	LLM     llm.Client
	Timeout time.Duration
}

// Expander builds alias sets.
type Expander struct {
	opts Options
}

// NewExpander creates an expander.
func NewExpander(opts Options) *Expander {
	if opts.MaxAliases <= 0 {
		opts.MaxAliases = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Expander{opts: opts}
}

// Expand returns the alias set for q. The first element is always the
// original name. Generative failures leave the deterministic set unchanged.
func (e *Expander) Expand(ctx context.Context, q model.Query) (out model.AliasSet) {
	det := Deterministic(q)
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("alias: recovered panic", zap.Any("panic", r))
			out = det
		}
	}()

	if e.opts.LLM == nil || q.Blank() {
		return det
	}

	limit := max(e.opts.MaxAliases, len(det))
	if len(det) >= limit {
		return det
	}

	extra, err := e.augment(ctx, q)
	if err != nil {
		zap.L().Debug("alias: augmentation skipped", zap.String("name", q.Name), zap.Error(err))
		return det
	}

	set := newSet(det...)
	for _, a := range extra {
		if len(set.items) >= limit {
			break
		}
		set.add(a)
	}
	return set.items
}

func (e *Expander) augment(ctx context.Context, q model.Query) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	prompt := fmt.Sprintf("Company: %s", q.Name)
	if q.Ticker != "" {
		prompt += fmt.Sprintf("\nTicker: %s", q.Ticker)
	}
	if q.Country != "" {
		prompt += fmt.Sprintf("\nCountry: %s", q.Country)
	}

	raw, err := e.opts.LLM.Generate(ctx, llm.Request{
		System:    augmentSystem,
		Prompt:    prompt,
		MaxTokens: 256,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal([]byte(llm.CleanJSON(raw)), &names); err != nil {
		return nil, fmt.Errorf("alias: malformed augmentation output: %w", err)
	}

	out := names[:0]
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" && len(n) <= 120 {
			out = append(out, n)
		}
	}
	return out, nil
}

// Deterministic returns the rule-based variants in a fixed order: original,
// suffix-stripped, accent-folded, "&" spelled out, uppercase, first word,
// first two words, ticker upper and lower.
func Deterministic(q model.Query) model.AliasSet {
	name := strings.TrimSpace(q.Name)
	set := newSet(name)
	if name == "" {
		return model.AliasSet{q.Name}
	}

	stripped := StripSuffixes(name)
	set.add(stripped)
	set.add(Fold(stripped))
	if strings.Contains(stripped, "&") {
		set.add(strings.Join(strings.Fields(strings.ReplaceAll(stripped, "&", " and ")), " "))
	}
	set.add(strings.ToUpper(name))

	words := Words(stripped)
	if len(words) > 0 {
		set.add(words[0])
	}
	if len(words) > 1 {
		set.add(words[0] + " " + words[1])
	}

	if t := strings.TrimSpace(q.Ticker); t != "" {
		set.add(strings.ToUpper(t))
		set.add(strings.ToLower(t))
	}
	return set.items
}

type aliasSet struct {
	seen  map[string]struct{}
	items model.AliasSet
}

func newSet(first ...string) *aliasSet {
	s := &aliasSet{seen: make(map[string]struct{})}
	for _, f := range first {
		s.add(f)
	}
	return s
}

func (s *aliasSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
