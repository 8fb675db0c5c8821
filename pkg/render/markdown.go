// Package render provides terminal rendering for suite run summaries.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/probelab/dashtest/pkg/report"
)

// Markdown renders markdown content for terminal display.
// If noColor is true, returns the content unchanged.
// Otherwise, uses glamour to render with auto-detected style and word wrap.
func Markdown(content string, noColor bool) (string, error) {
	if noColor {
		return content, nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}

	result, err := renderer.Render(content)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	return result, nil
}

// Summary builds a markdown summary of a suite run for terminal display.
func Summary(rep report.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", rep.Title)

	verdict := "**PASS**"
	if !rep.Ok() {
		verdict = "**FAIL**"
	}
	fmt.Fprintf(&b, "%s: %d tests, %d passed, %d failed, %d skipped\n\n",
		verdict, rep.Total, rep.Passed, rep.Failed, rep.Skipped)

	fmt.Fprintf(&b, "- target: %s\n", rep.BaseURL)
	fmt.Fprintf(&b, "- browser: %s\n", rep.Browser)
	fmt.Fprintf(&b, "- revision: %s\n", rep.Revision)
	fmt.Fprintf(&b, "- elapsed: %s\n", rep.Elapsed.Round(time.Millisecond))

	if failures := rep.Failures(); len(failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "### %s\n\n", f.Name)
			if len(f.Output) > 0 {
				b.WriteString("```\n")
				for _, line := range f.Output {
					b.WriteString(line)
					b.WriteString("\n")
				}
				b.WriteString("```\n\n")
			}
		}
	}

	return b.String()
}
