package format

import (
	"regexp"
	"strings"
)

// DefaultLanguage labels code blocks that carry no language tag
const DefaultLanguage = "code"

var (
	fencePattern  = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)```")
	inlinePattern = regexp.MustCompile("`([^`]+)`")
	boldPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// Format converts raw answer text into content nodes. It is meant for raw
// text only; feeding rendered output back in is not idempotent.
func Format(text string) Content {
	var out Content

	last := 0
	for _, m := range fencePattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, formatProse(text[last:m[0]])...)

		lang := DefaultLanguage
		if m[2] >= 0 {
			lang = text[m[2]:m[3]]
		}
		out = append(out, Node{
			Kind:     KindCodeBlock,
			Language: lang,
			Code:     strings.TrimSpace(text[m[4]:m[5]]),
		})
		last = m[1]
	}
	out = append(out, formatProse(text[last:])...)

	return out
}

// formatProse handles text outside code blocks line by line. Consecutive
// list item lines are grouped into a single List node.
func formatProse(text string) []Node {
	if text == "" {
		return nil
	}

	var out []Node
	var items [][]Node

	flush := func() {
		if len(items) > 0 {
			out = append(out, Node{Kind: KindList, Items: items})
			items = nil
		}
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		inline := formatInline(line)

		// A bold span at the start of a line has already been consumed,
		// so only a literal leading "*" marks a list item
		if len(inline) > 0 && inline[0].Kind == KindText && strings.HasPrefix(inline[0].Text, "*") {
			first := strings.TrimLeft(strings.TrimPrefix(inline[0].Text, "*"), " \t")
			item := inline[1:]
			if first != "" {
				item = append([]Node{{Kind: KindText, Text: first}}, item...)
			}
			items = append(items, item)
			continue
		}

		flush()
		out = append(out, inline...)
		if i < len(lines)-1 {
			out = append(out, Node{Kind: KindBreak})
		}
	}
	flush()

	return out
}

// formatInline splits one line into text, inline code and bold nodes.
// Inline code is extracted first so bold markers inside it stay literal.
// Spans never cross a line end.
func formatInline(line string) []Node {
	var out []Node

	last := 0
	for _, m := range inlinePattern.FindAllStringSubmatchIndex(line, -1) {
		out = append(out, formatBold(line[last:m[0]])...)
		out = append(out, Node{Kind: KindInlineCode, Text: line[m[2]:m[3]]})
		last = m[1]
	}
	out = append(out, formatBold(line[last:])...)

	return out
}

func formatBold(text string) []Node {
	if text == "" {
		return nil
	}

	var out []Node
	last := 0
	for _, m := range boldPattern.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			out = append(out, Node{Kind: KindText, Text: text[last:m[0]]})
		}
		out = append(out, Node{Kind: KindBold, Text: text[m[2]:m[3]]})
		last = m[1]
	}
	if last < len(text) {
		out = append(out, Node{Kind: KindText, Text: text[last:]})
	}

	return out
}
