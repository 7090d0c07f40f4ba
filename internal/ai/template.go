package ai

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateGenerator renders a fixed template per assistance type. Output
// depends only on the request, which makes it suitable for demos and tests.
type TemplateGenerator struct {
	Lang language.Tag
}

// NewTemplateGenerator returns a TemplateGenerator using English casing.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{Lang: language.English}
}

// Generate renders the template for req.AssistanceType. An unknown type is
// an error.
func (g *TemplateGenerator) Generate(_ context.Context, req Request) (string, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled Document"
	}
	prompt := strings.TrimSpace(req.Prompt)

	switch req.AssistanceType {
	case "write":
		return fmt.Sprintf(
			"<h2>Draft</h2>\n<p>Here is a starting draft for your request: \"%s\".</p>\n"+
				"<p>Open with a clear statement of the main idea, support it with two or three "+
				"concrete points drawn from your sources, and close by restating why it matters.</p>",
			prompt), nil
	case "edit":
		return fmt.Sprintf(
			"<h2>Suggested Edits</h2>\n<p>Based on your request: \"%s\".</p>\n<ul>\n"+
				"<li>Tighten long sentences and remove repeated words.</li>\n"+
				"<li>Make each paragraph open with its key point.</li>\n"+
				"<li>Check that terms are used consistently throughout.</li>\n</ul>",
			prompt), nil
	case "study_guide":
		return fmt.Sprintf(
			"<h2>Study Guide: %s</h2>\n<h3>Key Concepts</h3>\n<ul>\n"+
				"<li>Main ideas introduced in %s</li>\n<li>Important terms and definitions</li>\n"+
				"<li>Relationships between the concepts</li>\n</ul>\n"+
				"<h3>Review Questions</h3>\n<ol>\n<li>What is the central argument of %s?</li>\n"+
				"<li>Which evidence supports it most strongly?</li>\n</ol>",
			title, title, title), nil
	case "summarize":
		words := WordCount(req.PlainText)
		return fmt.Sprintf(
			"<h2>Summary</h2>\n<p>\"%s\" contains %d words.</p>\n"+
				"<p>The document introduces its topic, develops the main points and closes with its conclusions. "+
				"Request: %s.</p>",
			title, words, g.label(prompt)), nil
	default:
		return "", fmt.Errorf("ai: unsupported assistance type %q", req.AssistanceType)
	}
}

func (g *TemplateGenerator) label(s string) string {
	if s == "" {
		return "General Overview"
	}
	// cases.Caser is stateful, so build one per call.
	return cases.Title(g.Lang).String(s)
}
