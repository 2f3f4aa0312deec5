package report

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// dataURI inlines a chart so the document is self-contained
func dataURI(img image) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img.PNG)
}

func writeMarkdown(c *content, src func(image) string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", c.School)
	fmt.Fprintf(&b, "## %s\n\n", c.Title)
	if c.Source != "" {
		fmt.Fprintf(&b, "Source: %s, uploaded %s\n\n", c.Source, c.Date.Format("2 January 2006"))
	}
	fmt.Fprintf(&b, "**Class average:** %.2f%%\n\n", c.ClassAverage)

	b.WriteString("### Insights\n\n")
	for _, s := range c.Insights {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\n### Recommendations\n\n")
	if len(c.Recommendations) == 0 {
		b.WriteString("No action needed.\n")
	}
	for _, s := range c.Recommendations {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	if len(c.Tiers) > 0 {
		b.WriteString("\n### Performance Bands\n\n")
		b.WriteString("| Band | Learners |\n|------|----------|\n")
		for _, t := range c.Tiers {
			fmt.Fprintf(&b, "| %s | %s |\n", t.Label, escapeCell(memberNames(t)))
		}
	}

	fmt.Fprintf(&b, "\n### %s\n\n![%s](%s)\n", c.Averages.Caption, c.Averages.Caption, src(c.Averages))
	if len(c.Pies) > 0 {
		b.WriteString("\n### Mark Distribution per Question\n\n")
		for _, p := range c.Pies {
			fmt.Fprintf(&b, "![%s](%s)\n\n", p.Caption, src(p))
		}
	}

	fmt.Fprintf(&b, "\n---\n\n*%s*\n", c.Footer)
	return b.String()
}

func writeHTML(c *content) ([]byte, error) {
	md := writeMarkdown(c, dataURI)

	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: fmt.Sprintf("%s: %s", c.School, c.Title),
	})
	return markdown.ToHTML([]byte(md), p, r), nil
}

func escapeCell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
