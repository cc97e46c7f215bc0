package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"techchat/internal/format"
)

func TestHTMLEscapesProse(t *testing.T) {
	got := MessageHTML("<script>alert(1)</script> & **bold**")

	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;alert(1)&lt;/script&gt; &amp; ")
	assert.Contains(t, got, "<strong>bold</strong>")
}

func TestHTMLCodeBlock(t *testing.T) {
	got := MessageHTML("```html\n<b>&</b>\n```")

	assert.Equal(t,
		`<div class="code-container"><div class="code-header">`+
			`<span class="code-language">html</span>`+
			`<button class="copy-button" data-code="&lt;b&gt;&amp;&lt;/b&gt;">Copy</button></div>`+
			`<pre><code class="language-html">&lt;b&gt;&amp;&lt;/b&gt;</code></pre></div>`,
		got)
}

func TestHTMLCopyPayloadQuotes(t *testing.T) {
	got := MessageHTML("```js\nconsole.log(\"hi\")\n```")

	assert.Contains(t, got, `data-code="console.log(&#34;hi&#34;)"`)
}

func TestHTMLListAndInlineCode(t *testing.T) {
	got := MessageHTML("Try:\n* `go test`\n* read docs")

	assert.Equal(t,
		`Try:<br>`+"\n"+
			`<ul class="message-list"><li><code class="inline-code">go test</code></li><li>read docs</li></ul>`,
		got)
}

func TestHTMLEmpty(t *testing.T) {
	assert.Equal(t, "", HTML(nil))
}

func TestTerminalNumbersCodeBlocks(t *testing.T) {
	r := NewTerminal(80)
	r.Highlight = false

	got := r.Render(format.Format("First:\n```go\nfmt.Println(1)\n```\nSecond:\n```sh\nls -la\n```"))

	assert.Contains(t, got, "[1] go")
	assert.Contains(t, got, "[2] sh")
	assert.Contains(t, got, "fmt.Println(1)")
	assert.Contains(t, got, "ls -la")
	assert.Less(t, strings.Index(got, "[1] go"), strings.Index(got, "[2] sh"))
}

func TestTerminalProse(t *testing.T) {
	got := NewTerminal(80).Render(format.Format("Hello **world**\n* one\n* two"))

	assert.Contains(t, got, "Hello ")
	assert.Contains(t, got, "world")
	assert.Contains(t, got, "one")
	assert.Contains(t, got, "two")
	assert.False(t, strings.HasSuffix(got, "\n"))
}

func TestHighlightKeepsCode(t *testing.T) {
	got := highlight("x := 1", "go")
	assert.Contains(t, got, "1")
}
