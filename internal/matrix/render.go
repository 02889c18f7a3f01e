// ABOUTME: Renders screens as Matrix messages and maps replies back to actions
// ABOUTME: Markdown body with reply options, HTML via goldmark

package matrix

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))

// renderBody flattens a screen into a markdown message body. Buttons
// become reply options the user answers by typing the label; links are
// inlined as markdown links.
func renderBody(text string, options []replyOption, links []namedLink) string {
	var b strings.Builder
	b.WriteString(text)

	for _, l := range links {
		fmt.Fprintf(&b, "\n\n[%s](%s)", l.label, l.url)
	}

	if len(options) > 0 {
		b.WriteString("\n\nReply with:\n")
		for _, o := range options {
			fmt.Fprintf(&b, "- `%s`\n", o.label)
		}
	}
	return b.String()
}

// renderHTML converts the markdown body to the formatted_body HTML.
func renderHTML(body string) (string, error) {
	var out strings.Builder
	if err := markdown.Convert([]byte(body), &out); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}

type replyOption struct {
	label  string
	action string
}

type namedLink struct {
	label string
	url   string
}

// normalizeLabel canonicalizes a button label or a user reply for
// matching: lowercase, trimmed, marker bullets and backticks stripped,
// runs of whitespace collapsed.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "•` ")
	return strings.Join(strings.Fields(s), " ")
}
