package evidence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocks_StripsBoilerplate(t *testing.T) {
	html := `<html><head><title>x</title><style>.a{}</style><script>var rating = "AAA";</script></head>
<body>
<nav>Home | Ratings | About</nav>
<!-- rating AAA in a comment -->
<h1>Petrobras</h1>
<p>S&amp;P upgrades Petrobras to BBB-, outlook positive.</p>
<div><span>Long-Term</span> <span>Rating:</span> <b>AA-</b></div>
<footer>Copyright Fitch Ratings</footer>
</body></html>`

	blocks := Blocks([]byte(html))
	joined := strings.Join(blocks, "|")

	assert.Equal(t, []string{
		"Petrobras",
		"S&P upgrades Petrobras to BBB-, outlook positive.",
		"Long-Term Rating: AA-",
	}, blocks)
	assert.NotContains(t, joined, "var rating")
	assert.NotContains(t, joined, "Home | Ratings")
	assert.NotContains(t, joined, "comment")
	assert.NotContains(t, joined, "Copyright")
}

func TestBlocks_TableCellsStayOnOneLine(t *testing.T) {
	html := `<table><tr><td>Issuer Default Rating</td><td>BBB+</td></tr><tr><td>Outlook</td><td>Stable</td></tr></table>`
	blocks := Blocks([]byte(html))
	require.Len(t, blocks, 2)
	assert.Equal(t, "Issuer Default Rating BBB+", blocks[0])
	assert.Equal(t, "Outlook Stable", blocks[1])
}

func TestBlocks_PlainText(t *testing.T) {
	blocks := Blocks([]byte("Fitch affirms Vale at BBB-.\n\nOutlook Stable.\n"))
	assert.Equal(t, []string{"Fitch affirms Vale at BBB-.", "Outlook Stable."}, blocks)
}

func TestBlocks_DecodesLegacyCharset(t *testing.T) {
	body := []byte("<html><head><meta charset=\"iso-8859-1\"></head><body><p>Classifica\xe7\xe3o de risco: AA(bra)</p></body></html>")
	blocks := Blocks(body)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Classificação de risco: AA(bra)", blocks[0])
}

func TestBlocks_Empty(t *testing.T) {
	assert.Empty(t, Blocks(nil))
	assert.Empty(t, Blocks([]byte("<html><body><script>x</script></body></html>")))
}
