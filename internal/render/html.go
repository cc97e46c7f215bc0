// Package render turns formatted content into HTML or ANSI terminal text.
package render

import (
	"strings"

	"golang.org/x/net/html"

	"techchat/internal/format"
)

// HTML renders content as an HTML fragment. All text is escaped; code blocks
// get a container with a language label and a copy button whose data-code
// attribute carries the escaped payload.
func HTML(content format.Content) string {
	var b strings.Builder
	for _, n := range content {
		writeHTML(&b, n)
	}
	return b.String()
}

// MessageHTML formats and renders raw message text in one step
func MessageHTML(text string) string {
	return HTML(format.Format(text))
}

func writeHTML(b *strings.Builder, n format.Node) {
	switch n.Kind {
	case format.KindText:
		b.WriteString(html.EscapeString(n.Text))
	case format.KindBreak:
		b.WriteString("<br>\n")
	case format.KindInlineCode:
		b.WriteString(`<code class="inline-code">`)
		b.WriteString(html.EscapeString(n.Text))
		b.WriteString("</code>")
	case format.KindBold:
		b.WriteString("<strong>")
		b.WriteString(html.EscapeString(n.Text))
		b.WriteString("</strong>")
	case format.KindList:
		b.WriteString(`<ul class="message-list">`)
		for _, item := range n.Items {
			b.WriteString("<li>")
			for _, child := range item {
				writeHTML(b, child)
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
	case format.KindCodeBlock:
		lang := html.EscapeString(n.Language)
		code := html.EscapeString(n.Code)
		b.WriteString(`<div class="code-container">`)
		b.WriteString(`<div class="code-header">`)
		b.WriteString(`<span class="code-language">` + lang + `</span>`)
		b.WriteString(`<button class="copy-button" data-code="` + code + `">Copy</button>`)
		b.WriteString(`</div>`)
		b.WriteString(`<pre><code class="language-` + lang + `">` + code + `</code></pre>`)
		b.WriteString(`</div>`)
	}
}
