package search

import (
	"strings"
)

// FlattenMarkdown reduces markdown-ish source text to plain lines so that a
// fixed-size excerpt of it reads well inside a prompt:
//
//   - table rows become their non-empty cells joined by spaces, and
//     alignment and empty rows disappear without splitting the table;
//   - heading hashes, blockquote markers and list bullets are stripped;
//   - runs of blank lines collapse to one, with none leading or trailing.
func FlattenMarkdown(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := true // suppresses a leading blank line

	for _, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			if !blank {
				out = append(out, "")
				blank = true
			}
			continue
		}
		// Alignment rows and bare markers vanish without breaking the paragraph.
		line := plainLine(trimmed)
		if line == "" {
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

// plainLine flattens one trimmed line; "" means the line carries no text.
func plainLine(line string) string {
	if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") && len(line) > 1 {
		return tableRow(line)
	}
	if h := strings.TrimLeft(line, "#"); h != line && (h == "" || h[0] == ' ') {
		return strings.TrimSpace(h)
	}
	for _, marker := range []string{"> ", "- ", "* ", "+ "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(line[len(marker):])
		}
	}
	return line
}

// tableRow joins the cells of "| a | b |"; alignment rows yield "".
func tableRow(line string) string {
	var cells []string
	for _, c := range strings.Split(strings.Trim(line, "|"), "|") {
		c = strings.TrimSpace(c)
		if c == "" || strings.Trim(c, ":-") == "" {
			continue
		}
		cells = append(cells, c)
	}
	return strings.Join(cells, " ")
}
