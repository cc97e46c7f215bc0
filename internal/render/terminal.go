package render

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"techchat/internal/format"
)

// Terminal renders content for an ANSI terminal
type Terminal struct {
	width int

	// Highlight toggles chroma syntax highlighting inside code blocks
	Highlight bool

	bold       lipgloss.Style
	inlineCode lipgloss.Style
	codeHeader lipgloss.Style
	codeBox    lipgloss.Style
	bullet     lipgloss.Style
}

// NewTerminal creates a terminal renderer that wraps code blocks at width
func NewTerminal(width int) *Terminal {
	if width < 40 {
		width = 40
	}
	return &Terminal{
		width:      width,
		Highlight:  true,
		bold:       lipgloss.NewStyle().Bold(true),
		inlineCode: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		codeHeader: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true),
		codeBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		bullet: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
}

// Render writes content as terminal text. Code blocks are numbered from 1
// in order of appearance so they can be referenced later.
func (t *Terminal) Render(content format.Content) string {
	var b strings.Builder
	block := 0
	for _, n := range content {
		if n.Kind == format.KindCodeBlock {
			block++
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteString("\n")
			}
			b.WriteString(t.renderCode(block, n))
			b.WriteString("\n")
			continue
		}
		t.writeInline(&b, n)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (t *Terminal) writeInline(b *strings.Builder, n format.Node) {
	switch n.Kind {
	case format.KindText:
		b.WriteString(n.Text)
	case format.KindBreak:
		b.WriteString("\n")
	case format.KindInlineCode:
		b.WriteString(t.inlineCode.Render(n.Text))
	case format.KindBold:
		b.WriteString(t.bold.Render(n.Text))
	case format.KindList:
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
		for _, item := range n.Items {
			b.WriteString(t.bullet.Render("  • "))
			for _, child := range item {
				t.writeInline(b, child)
			}
			b.WriteString("\n")
		}
	}
}

func (t *Terminal) renderCode(index int, n format.Node) string {
	code := n.Code
	if t.Highlight {
		code = highlight(code, n.Language)
	}
	header := t.codeHeader.Render(fmt.Sprintf("[%d] %s", index, n.Language))
	return t.codeBox.MaxWidth(t.width).Render(header + "\n" + code)
}

// highlight applies chroma syntax highlighting, returning code unchanged
// when tokenising or formatting fails
func highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
