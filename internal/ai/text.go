package ai

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// PlainText strips tags from editor HTML and returns the visible text with
// whitespace collapsed. Script and style bodies are dropped. Entities are
// decoded.
func PlainText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input: keep what was read so far.
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawTextTag(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawTextTag(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTextTag(name []byte) bool {
	s := string(name)
	return s == "script" || s == "style"
}

// WordCount counts whitespace-separated words in text that PlainText has
// already stripped of markup.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Excerpt returns at most n runes of s. It never splits a multi-byte rune.
func Excerpt(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
