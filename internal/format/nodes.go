// Package format turns raw answer text into typed content nodes.
//
// Recognised markup, in pass order: fenced code blocks, inline code spans,
// bold spans and "*" list items. Code block payloads are split out before
// any other pass runs, so their text is never rewritten.
package format

// Kind identifies the type of a Node
type Kind int

const (
	KindText Kind = iota
	KindBreak
	KindCodeBlock
	KindInlineCode
	KindBold
	KindList
)

var kindNames = map[Kind]string{
	KindText:       "text",
	KindBreak:      "break",
	KindCodeBlock:  "code_block",
	KindInlineCode: "inline_code",
	KindBold:       "bold",
	KindList:       "list",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets Kind appear by name in JSON payloads
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is one element of formatted content.
//
// Text, InlineCode and Bold use Text. CodeBlock uses Language and Code.
// List uses Items, one slice of inline nodes per list item.
type Node struct {
	Kind     Kind     `json:"kind"`
	Text     string   `json:"text,omitempty"`
	Language string   `json:"language,omitempty"`
	Code     string   `json:"code,omitempty"`
	Items    [][]Node `json:"items,omitempty"`
}

// Content is a formatted message
type Content []Node

// CodeBlocks returns the code block nodes of c in order of appearance
func (c Content) CodeBlocks() []Node {
	var blocks []Node
	for _, n := range c {
		if n.Kind == KindCodeBlock {
			blocks = append(blocks, n)
		}
	}
	return blocks
}
