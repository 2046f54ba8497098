package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/rating-finder/internal/model"
)

func TestVocabulary_Sizes(t *testing.T) {
	assert.Len(t, Vocabulary(model.ScaleSPFitch), 22)
	assert.Len(t, Vocabulary(model.ScaleMoodys), 21)
	assert.Nil(t, Vocabulary("OTHER"))
}

func TestVocabulary_ReturnsCopy(t *testing.T) {
	v := Vocabulary(model.ScaleSPFitch)
	v[0] = "mutated"
	assert.Equal(t, "AAA", Vocabulary(model.ScaleSPFitch)[0])
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("BBB-", model.ScaleSPFitch))
	assert.True(t, IsValid(" Baa2 ", model.ScaleMoodys))
	assert.False(t, IsValid("bbb-", model.ScaleSPFitch))
	assert.False(t, IsValid("Baa2", model.ScaleSPFitch))
	assert.False(t, IsValid("AAA+", model.ScaleSPFitch))
	assert.True(t, IsValid("AA(bra)", model.ScaleLocal))
	assert.False(t, IsValid("AA", model.ScaleLocal))
}

func TestSplitLocal(t *testing.T) {
	tests := []struct {
		raw  string
		base string
		ok   bool
	}{
		{"AA(bra)", "AA", true},
		{"A+(mex)", "A+", true},
		{"brAA+", "AA+", true},
		{"Aa1.br", "Aa1", true},
		{"AAA.br", "AAA", true},
		{"AA", "", false},
		{"XYZ(bra)", "XYZ", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			base, ok := SplitLocal(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.base != "" {
				assert.Equal(t, tt.base, base)
			}
		})
	}
}

func TestClassifyToken(t *testing.T) {
	s, ok := ClassifyToken("BBB-", model.AgencySP)
	assert.True(t, ok)
	assert.Equal(t, model.ScaleSPFitch, s)

	s, ok = ClassifyToken("Ba1", model.AgencyMoodys)
	assert.True(t, ok)
	assert.Equal(t, model.ScaleMoodys, s)

	s, ok = ClassifyToken("AA(bra)", model.AgencyFitch)
	assert.True(t, ok)
	assert.Equal(t, model.ScaleLocal, s)

	_, ok = ClassifyToken("Baa2", model.AgencySP)
	assert.False(t, ok)
}

func TestParseOutlook(t *testing.T) {
	o, ok := ParseOutlook("positive")
	assert.True(t, ok)
	assert.Equal(t, model.OutlookPositive, o)

	o, ok = ParseOutlook("CreditWatch")
	assert.True(t, ok)
	assert.Equal(t, model.OutlookWatch, o)

	_, ok = ParseOutlook("N/A")
	assert.False(t, ok)
	_, ok = ParseOutlook("")
	assert.False(t, ok)
}
