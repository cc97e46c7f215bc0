package history

import (
	"time"
	"unicode/utf8"
)

// Role identifies who produced a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TitleLength is the number of characters of the first user message kept as
// the session title
const TitleLength = 30

// TimestampLayout is the ISO layout used for Session.Timestamp
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Session represents a single conversation thread
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Timestamp string    `json:"timestamp" yaml:"timestamp"`
	Messages  []Message `json:"messages" yaml:"messages"`
}

// Message represents a single message in a conversation.
// Content is stored raw; formatting is applied only when rendering.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Time parses the session timestamp. A malformed value yields the zero time.
func (s Session) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, s.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Clone returns a copy of s whose message slice does not alias the original
func (s Session) Clone() Session {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	return out
}

// FormatTimestamp renders t the way sessions store it
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// MakeTitle derives a session title from the first user message
func MakeTitle(firstMessage string) string {
	if utf8.RuneCountInString(firstMessage) <= TitleLength {
		return firstMessage
	}
	runes := []rune(firstMessage)
	return string(runes[:TitleLength]) + "..."
}
