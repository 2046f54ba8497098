package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rating-finder/internal/model"
)

func TestNormalize_SPFitchExamples(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"AAA", 22},
		{"AA+", 21},
		{"A-", 16},
		{"BBB+", 15},
		{"BBB", 14},
		{"BBB-", 13},
		{"BB+", 12},
		{"CCC-", 4},
		{"D", 1},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Normalize(tt.raw, model.ScaleSPFitch)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestNormalize_MoodysAligned(t *testing.T) {
	tests := []struct {
		moodys string
		sp     string
	}{
		{"Aaa", "AAA"},
		{"Aa2", "AA"},
		{"A3", "A-"},
		{"Baa2", "BBB"},
		{"Baa3", "BBB-"},
		{"Ba1", "BB+"},
		{"B3", "B-"},
		{"Caa3", "CCC-"},
		{"Ca", "CC"},
		{"C", "C"},
	}
	for _, tt := range tests {
		t.Run(tt.moodys, func(t *testing.T) {
			m := Normalize(tt.moodys, model.ScaleMoodys)
			s := Normalize(tt.sp, model.ScaleSPFitch)
			require.NotNil(t, m)
			require.NotNil(t, s)
			assert.Equal(t, *s, *m)
		})
	}
	assert.Equal(t, 14, *Normalize("Baa2", model.ScaleMoodys))
}

func TestNormalize_MonotonicAcrossVocabulary(t *testing.T) {
	for _, scale := range []model.Scale{model.ScaleSPFitch, model.ScaleMoodys} {
		prev := 23
		for _, tok := range Vocabulary(scale) {
			got := Normalize(tok, scale)
			require.NotNil(t, got, tok)
			assert.Less(t, *got, prev, "%s should rank below its predecessor", tok)
			prev = *got
		}
	}
}

func TestNormalize_LocalAndUnknownAreNil(t *testing.T) {
	assert.Nil(t, Normalize("AA(bra)", model.ScaleLocal))
	assert.Nil(t, Normalize("AAA", model.ScaleLocal))
	assert.Nil(t, Normalize("ZZZ", model.ScaleSPFitch))
	assert.Nil(t, Normalize("Baa2", model.ScaleSPFitch))
	assert.Nil(t, Normalize("BBB", model.ScaleMoodys))
}
