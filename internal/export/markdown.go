package export

import (
	"fmt"
	"io"

	"techchat/internal/history"
)

// MarkdownExporter exports sessions in Markdown format. Message content is
// already markdown and is written unchanged.
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(sess history.Session, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# %s\n\n", sess.Title); err != nil {
		return err
	}
	if t := sess.Time(); !t.IsZero() {
		_, _ = fmt.Fprintf(w, "_%s_\n\n", t.Local().Format("Jan 2, 2006 3:04 PM"))
	}

	for i, msg := range sess.Messages {
		label := "User"
		if msg.Role == history.RoleAssistant {
			label = "Assistant"
		}
		if _, err := fmt.Fprintf(w, "**%s:**\n\n%s\n\n", label, msg.Content); err != nil {
			return err
		}
		if i < len(sess.Messages)-1 {
			_, _ = fmt.Fprint(w, "---\n\n")
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
