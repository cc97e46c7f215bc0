package ws

import (
	"techchat/internal/chat"
	"techchat/internal/history"
	"techchat/internal/render"
)

// Notification methods pushed by the server
const (
	MethodStateChanged = "state.changed"
)

// CodeBusy is the JSON-RPC error code for a submission while an answer is
// pending
const CodeBusy int64 = -32001

type AuthParams struct {
	Token string `json:"token"`
}

type SubmitParams struct {
	Content string `json:"content"`
}

type SessionParams struct {
	ID string `json:"id"`
}

type SuggestionsParams struct {
	Category string `json:"category"`
}

type CategoryParams struct {
	Category string `json:"category"`
}

type ToggleResult struct {
	SimplifyMode bool `json:"simplifyMode"`
}

// MessageView is a transcript message with its rendered HTML
type MessageView struct {
	Role    history.Role `json:"role"`
	Content string       `json:"content"`
	HTML    string       `json:"html"`
}

// SessionSummary is one entry of the history list
type SessionSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Timestamp    string `json:"timestamp"`
	MessageCount int    `json:"messageCount"`
}

// StateView is the controller state as sent to the browser
type StateView struct {
	Messages     []MessageView    `json:"messages"`
	Loading      bool             `json:"loading"`
	SimplifyMode bool             `json:"simplifyMode"`
	History      []SessionSummary `json:"history"`
	ActiveID     string           `json:"activeId"`
	Phase        chat.Phase       `json:"phase"`
	Category     string           `json:"category"`
}

// NewStateView renders every message of st to HTML
func NewStateView(st chat.State) StateView {
	view := StateView{
		Messages:     make([]MessageView, len(st.Messages)),
		Loading:      st.Loading,
		SimplifyMode: st.SimplifyMode,
		History:      make([]SessionSummary, len(st.History)),
		ActiveID:     st.ActiveID,
		Phase:        st.Phase,
		Category:     st.Category,
	}
	for i, m := range st.Messages {
		view.Messages[i] = MessageView{Role: m.Role, Content: m.Content, HTML: render.MessageHTML(m.Content)}
	}
	for i, s := range st.History {
		view.History[i] = SessionSummary{
			ID:           s.ID,
			Title:        s.Title,
			Timestamp:    s.Timestamp,
			MessageCount: len(s.Messages),
		}
	}
	return view
}
