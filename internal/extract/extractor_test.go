package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rating-finder/internal/llm"
	"github.com/sells-group/rating-finder/internal/model"
	"github.com/sells-group/rating-finder/internal/rating"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockLLM) Name() string { return "mock" }

func window(text string, agency model.Agency) model.EvidenceWindow {
	return model.EvidenceWindow{URL: "https://example.com/page", Text: text, Agency: agency}
}

func TestExtract_RatingAction(t *testing.T) {
	e := New(Options{})
	res := e.Extract(context.Background(), window("S&P upgrades Petrobras to BBB-, outlook positive.", model.AgencySP), model.AgencySP, "Petrobras")

	require.True(t, res.Found)
	assert.Equal(t, "BBB-", res.Rating)
	assert.Equal(t, model.ScaleSPFitch, res.Scale)
	assert.Equal(t, model.OutlookPositive, res.Outlook)
	assert.Equal(t, PatternConfidence, res.Confidence)
	assert.Equal(t, model.MethodPattern, res.Method)

	entry := res.Entry(model.AgencySP, "https://example.com/page")
	assert.Equal(t, model.AgencySP, entry.Agency)
	assert.Equal(t, "https://example.com/page", entry.SourceRef)
	score := rating.Normalize(entry.RatingRaw, entry.Scale)
	require.NotNil(t, score)
	assert.Equal(t, 13, *score)
}

func TestExtract_LabelPatterns(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		agency  model.Agency
		rating  string
		scale   model.Scale
		outlook model.Outlook
	}{
		{"fitch idr", "Fitch Ratings - Long-Term IDR: BBB+ Outlook Stable. 12 March 2025", model.AgencyFitch, "BBB+", model.ScaleSPFitch, model.OutlookStable},
		{"fitch quoted action", "Fitch affirms Vale at 'BBB-'; outlook stable", model.AgencyFitch, "BBB-", model.ScaleSPFitch, model.OutlookStable},
		{"long-term rating", "Company profile. Long-Term Rating: AA- with a negative outlook", model.AgencySP, "AA-", model.ScaleSPFitch, model.OutlookNegative},
		{"issuer credit rating", "S&P Global Issuer Credit Rating: A", model.AgencySP, "A", model.ScaleSPFitch, ""},
		{"moodys issuer rating", "Moody's Long-Term Issuer Rating: Baa2", model.AgencyMoodys, "Baa2", model.ScaleMoodys, ""},
		{"moodys cfr", "Moody's Investors Service Corporate Family Rating: Ba1 (CreditWatch)", model.AgencyMoodys, "Ba1", model.ScaleMoodys, model.OutlookWatch},
		{"moodys action", "Moody's downgrades Vale to Ba2 from Ba1; outlook negative", model.AgencyMoodys, "Ba2", model.ScaleMoodys, model.OutlookNegative},
		{"rated", "Petrobras is rated AA- by Fitch Ratings since last year.", model.AgencyFitch, "AA-", model.ScaleSPFitch, ""},
		{"national scale", "Fitch National Long-Term Rating: AA(bra), Perspectiva estável", model.AgencyFitch, "AA(bra)", model.ScaleLocal, model.OutlookStable},
	}
	e := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Extract(context.Background(), window(tt.text, tt.agency), tt.agency, "X")
			require.True(t, res.Found)
			assert.Equal(t, tt.rating, res.Rating)
			assert.Equal(t, tt.scale, res.Scale)
			assert.Equal(t, tt.outlook, res.Outlook)
		})
	}
}

func TestExtract_PatternDate(t *testing.T) {
	res := New(Options{}).Extract(context.Background(),
		window("Fitch Ratings - Long-Term IDR: BBB+ Outlook Stable. 12 March 2025", model.AgencyFitch),
		model.AgencyFitch, "Vale")
	require.True(t, res.Found)
	require.NotNil(t, res.AsOf)
	assert.Equal(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC), *res.AsOf)
}

func TestExtract_VocabularyGate(t *testing.T) {
	res := New(Options{}).Extract(context.Background(),
		window("Long-Term Rating: XYZ+ according to the agency", model.AgencySP),
		model.AgencySP, "X")
	assert.False(t, res.Found)
}

func TestExtract_UnhintedWindowRequiresAgencyMention(t *testing.T) {
	w := window("The company is rated BBB- by S&P and Baa3 by Moody's.", "")
	e := New(Options{})

	sp := e.Extract(context.Background(), w, model.AgencySP, "X")
	require.True(t, sp.Found)
	assert.Equal(t, "BBB-", sp.Rating)

	fitch := e.Extract(context.Background(), w, model.AgencyFitch, "X")
	assert.False(t, fitch.Found)
}

func TestExtract_HintedWindowIgnoresOtherAgencyAction(t *testing.T) {
	w := window("Fitch affirms Petrobras at BB-, outlook stable.", model.AgencySP)
	e := New(Options{})

	sp := e.Extract(context.Background(), w, model.AgencySP, "Petrobras")
	assert.False(t, sp.Found)

	fitch := e.Extract(context.Background(), window(w.Text, ""), model.AgencyFitch, "Petrobras")
	require.True(t, fitch.Found)
	assert.Equal(t, "BB-", fitch.Rating)
}

func TestExtract_HintedWindowKeepsOwnSentence(t *testing.T) {
	w := window("Fitch affirms Petrobras at BB-, outlook stable. S&P raises Petrobras to BB; outlook positive.", model.AgencySP)

	res := New(Options{}).Extract(context.Background(), w, model.AgencySP, "Petrobras")
	require.True(t, res.Found)
	assert.Equal(t, "BB", res.Rating)
}

func TestExtract_ShortInputSkipsBothStages(t *testing.T) {
	m := &mockLLM{}
	e := New(Options{LLM: m})

	for _, text := range []string{"", "   ", "AA-", "rated AA-"} {
		res := e.Extract(context.Background(), window(text, model.AgencySP), model.AgencySP, "X")
		assert.False(t, res.Found)
		assert.Zero(t, res.Confidence)
	}
	m.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestExtract_PatternHitSkipsFallback(t *testing.T) {
	m := &mockLLM{}
	e := New(Options{LLM: m})
	res := e.Extract(context.Background(), window("S&P upgrades Petrobras to BBB-, outlook positive.", model.AgencySP), model.AgencySP, "Petrobras")
	assert.True(t, res.Found)
	m.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

const noPatternText = "Petrobras credit profile summary: the agency keeps its view of the issuer unchanged."

func TestExtract_FallbackAccepted(t *testing.T) {
	m := &mockLLM{}
	m.On("Generate", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.JSON && r.System != "" &&
			containsAll(r.Prompt, "Company: Petrobras", "Agency: Fitch Ratings", "BBB-", noPatternText)
	})).Return(`{"found":true,"rating":"BB","outlook":"Stable","confidence":0.9,"companyName":"Petrobras"}`, nil)

	res := New(Options{LLM: m}).Extract(context.Background(), window(noPatternText, model.AgencyFitch), model.AgencyFitch, "Petrobras")

	require.True(t, res.Found)
	assert.Equal(t, "BB", res.Rating)
	assert.Equal(t, model.ScaleSPFitch, res.Scale)
	assert.Equal(t, model.OutlookStable, res.Outlook)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, model.MethodGenerative, res.Method)
	assert.Equal(t, "Petrobras", res.CompanyName)
	m.AssertExpectations(t)
}

func TestExtract_FallbackRejections(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
	}{
		{"outside vocabulary", `{"found":true,"rating":"BBB++","outlook":"Stable","confidence":0.95}`, nil},
		{"wrong scale", `{"found":true,"rating":"Baa2","confidence":0.95}`, nil},
		{"below threshold", `{"found":true,"rating":"BB","confidence":0.4}`, nil},
		{"unknown field", `{"found":true,"rating":"BB","confidence":0.9,"source":"x"}`, nil},
		{"missing rating", `{"found":true,"confidence":0.9}`, nil},
		{"bad outlook", `{"found":true,"rating":"BB","outlook":"Sideways","confidence":0.9}`, nil},
		{"confidence out of range", `{"found":true,"rating":"BB","confidence":1.7}`, nil},
		{"not json", `I could not find a rating.`, nil},
		{"not found", `{"found":false,"confidence":0}`, nil},
		{"call error", "", errors.New("overloaded")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockLLM{}
			m.On("Generate", mock.Anything, mock.Anything).Return(tt.output, tt.err)
			res := New(Options{LLM: m}).Extract(context.Background(), window(noPatternText, model.AgencyFitch), model.AgencyFitch, "Petrobras")
			assert.False(t, res.Found)
			assert.Empty(t, res.Rating)
		})
	}
}

func TestExtract_FallbackFencedJSON(t *testing.T) {
	m := &mockLLM{}
	m.On("Generate", mock.Anything, mock.Anything).
		Return("```json\n{\"found\":true,\"rating\":\"Baa3\",\"outlook\":\"N/A\",\"confidence\":0.7}\n```", nil)

	res := New(Options{LLM: m}).Extract(context.Background(), window(noPatternText+" Updated 2025-01-15.", model.AgencyMoodys), model.AgencyMoodys, "Petrobras")
	require.True(t, res.Found)
	assert.Equal(t, "Baa3", res.Rating)
	assert.Equal(t, model.Outlook(""), res.Outlook)
	require.NotNil(t, res.AsOf)
	assert.Equal(t, 2025, res.AsOf.Year())
}

func TestExtract_FallbackTruncatesInput(t *testing.T) {
	long := noPatternText + " " + repeat("filler text ", 1000)
	m := &mockLLM{}
	m.On("Generate", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return len(r.Prompt) < 1000
	})).Return(`{"found":false,"confidence":0}`, nil)

	New(Options{LLM: m, MaxChars: 500}).Extract(context.Background(), window(long, model.AgencySP), model.AgencySP, "Petrobras")
	m.AssertExpectations(t)
}

func TestExtract_CallBudget(t *testing.T) {
	m := &mockLLM{}
	m.On("Generate", mock.Anything, mock.Anything).Return(`{"found":false,"confidence":0}`, nil)
	e := New(Options{LLM: m})

	ctx := WithCallBudget(context.Background(), 2)
	for range 5 {
		e.Extract(ctx, window(noPatternText, model.AgencySP), model.AgencySP, "Petrobras")
	}
	m.AssertNumberOfCalls(t, "Generate", 2)
}

func TestExtract_FallbackTimeout(t *testing.T) {
	m := &mockLLM{}
	m.On("Generate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		<-ctx.Done()
	}).Return("", context.DeadlineExceeded)

	start := time.Now()
	res := New(Options{LLM: m, Timeout: 50 * time.Millisecond}).Extract(context.Background(), window(noPatternText, model.AgencySP), model.AgencySP, "Petrobras")
	assert.False(t, res.Found)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExtract_PanicRecovered(t *testing.T) {
	m := &mockLLM{}
	m.On("Generate", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Return("", nil)

	res := New(Options{LLM: m}).Extract(context.Background(), window(noPatternText, model.AgencySP), model.AgencySP, "Petrobras")
	assert.False(t, res.Found)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !contains(s, p) {
			return false
		}
	}
	return true
}
