package evidence

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/htmlindex"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"li": true, "ul": true, "ol": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"dd": true, "dt": true, "dl": true, "blockquote": true, "pre": true,
}

var (
	metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_-]+)`)
	blankLinesRe  = regexp.MustCompile(`\n\s*\n`)
	spacesRe      = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
)

// decode converts a body in a declared legacy charset to UTF-8.
func decode(body []byte) io.Reader {
	head := body
	if len(head) > 2048 {
		head = head[:2048]
	}
	if m := metaCharsetRe.FindSubmatch(head); m != nil {
		name := strings.ToLower(string(m[1]))
		if name != "utf-8" && name != "utf8" {
			if enc, err := htmlindex.Get(name); err == nil {
				return enc.NewDecoder().Reader(bytes.NewReader(body))
			}
		}
	}
	return bytes.NewReader(body)
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<")) ||
		bytes.Contains(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<body")) ||
		bytes.Contains(head, []byte("<p"))
}

// Blocks returns the readable paragraph blocks of a page. Scripts, styles,
// navigation, footers and comments are dropped; block-level elements become
// paragraph boundaries.
func Blocks(body []byte) []string {
	var text string
	if looksLikeHTML(body) {
		doc, err := goquery.NewDocumentFromReader(decode(body))
		if err != nil {
			text = string(body)
		} else {
			doc.Find("script, style, noscript, nav, footer, header, aside, iframe, svg, form, template").Remove()
			var b strings.Builder
			walk(doc.Find("body"), &b)
			if b.Len() == 0 {
				walk(doc.Selection, &b)
			}
			text = b.String()
		}
	} else {
		text = string(body)
	}

	var out []string
	for _, p := range blankLinesRe.Split(text, -1) {
		p = strings.TrimSpace(spacesRe.ReplaceAllString(p, " "))
		p = strings.Join(strings.Fields(strings.ReplaceAll(p, "\n", " ")), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func walk(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		switch name := goquery.NodeName(s); {
		case name == "#text":
			b.WriteString(s.Text())
			b.WriteByte(' ')
		case name == "#comment":
		case name == "br":
			b.WriteByte('\n')
		case name == "td" || name == "th":
			walk(s, b)
			b.WriteString(" ")
		case blockTags[name]:
			b.WriteString("\n\n")
			walk(s, b)
			b.WriteString("\n\n")
		default:
			walk(s, b)
		}
	})
}
