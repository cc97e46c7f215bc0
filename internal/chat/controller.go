// Package chat holds the conversation state behind every chat surface.
//
// A Controller owns one visible transcript, the displayed history list and
// the request/response exchange with the answer service. Surfaces (the
// terminal REPL, a WebSocket connection) drive it through action methods and
// observe it through Snapshot and Subscribe.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"techchat/internal/answer"
	"techchat/internal/history"
)

var (
	// ErrEmptyInput is returned for a blank submission; nothing changes
	ErrEmptyInput = errors.New("chat: empty input")
	// ErrBusy is returned when a submission arrives while an answer is pending
	ErrBusy = errors.New("chat: awaiting answer")
	// ErrSessionNotFound is returned when selecting an unknown session
	ErrSessionNotFound = errors.New("chat: session not found")
)

// Phase is the request lifecycle of a controller
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingAnswer
)

func (p Phase) String() string {
	if p == PhaseAwaitingAnswer {
		return "awaiting_answer"
	}
	return "idle"
}

// MarshalText lets Phase appear by name in JSON payloads
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// HistoryStore is the persistence the controller needs
type HistoryStore interface {
	List() []history.Session
	Save(sess history.Session) error
	Delete(id string) error
}

// Asker produces answer text and never fails; see answer.Service
type Asker interface {
	Ask(ctx context.Context, prompt string, simplify bool) string
}

// State is an observable copy of controller state
type State struct {
	Messages     []history.Message `json:"messages"`
	Loading      bool              `json:"loading"`
	SimplifyMode bool              `json:"simplifyMode"`
	History      []history.Session `json:"history"`
	ActiveID     string            `json:"activeId"`
	Phase        Phase             `json:"phase"`
	Category     string            `json:"category"`
}

// Controller is the chat session state machine for a single surface
type Controller struct {
	store HistoryStore
	asker Asker
	log   *slog.Logger

	now   func() time.Time
	newID func() string

	mu          sync.Mutex
	phase       Phase
	activeID    string
	activeTitle string
	messages    []history.Message
	simplify    bool
	category    string
	sessions    []history.Session
	// inflight is the session record of the pending exchange, kept visible
	// in the history list until it has been saved
	inflight *history.Session

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// NewController creates a controller and loads the history list from store
func NewController(store HistoryStore, asker Asker, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		store: store,
		asker: asker,
		log:   log,
		now:   time.Now,
		newID: newSessionID,
		subs:  make(map[int]func(State)),
	}
	c.sessions = c.store.List()
	return c
}

func newSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// StartNew clears the active session and the transcript. Stored history is
// left untouched and an in-flight answer is not cancelled.
func (c *Controller) StartNew() {
	c.mu.Lock()
	c.resetActiveLocked()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) resetActiveLocked() {
	c.activeID = ""
	c.activeTitle = ""
	c.messages = nil
}

// Submit sends text as a question in the active session, creating a session
// first when none is active. It blocks until the answer has landed.
//
// Cancelling ctx does not cut the exchange short: the answer call keeps the
// context's values but not its cancellation, and is bounded by the backend
// client timeout instead, so a closed connection still gets its real answer
// saved.
//
// A failed save is logged and does not surface as an error; the transcript
// keeps the exchange either way.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.phase == PhaseAwaitingAnswer {
		c.mu.Unlock()
		return ErrBusy
	}

	record := history.Session{
		ID:       c.activeID,
		Title:    c.activeTitle,
		Messages: append([]history.Message(nil), c.messages...),
	}
	if record.ID == "" {
		record.ID = c.newID()
		record.Title = history.MakeTitle(text)
		c.activeID = record.ID
		c.activeTitle = record.Title
	}
	user := history.Message{Role: history.RoleUser, Content: text}
	record.Messages = append(record.Messages, user)
	record.Timestamp = history.FormatTimestamp(c.now())

	c.messages = append(c.messages, user)
	inflight := record.Clone()
	c.inflight = &inflight
	c.sessions = replaceOrPrepend(c.sessions, inflight)
	c.phase = PhaseAwaitingAnswer
	simplify := c.simplify
	c.mu.Unlock()
	c.notify()

	reply := c.ask(context.WithoutCancel(ctx), text, simplify)

	c.mu.Lock()
	assistant := history.Message{Role: history.RoleAssistant, Content: reply}
	record.Messages = append(record.Messages, assistant)
	record.Timestamp = history.FormatTimestamp(c.now())

	c.inflight = nil
	if err := c.store.Save(record); err != nil {
		c.log.Error("failed to save session", "session", record.ID, "error", err)
		c.sessions = upsertFront(c.sessions, record)
	} else {
		c.sessions = c.store.List()
	}

	if c.activeID == record.ID {
		c.messages = append([]history.Message(nil), record.Messages...)
	}
	c.phase = PhaseIdle
	c.mu.Unlock()
	c.notify()

	return nil
}

// ask calls the asker outside the lock; a panic is treated like any other
// generation failure
func (c *Controller) ask(ctx context.Context, prompt string, simplify bool) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("answer service panicked", "panic", r)
			reply = answer.FallbackText
		}
	}()
	return c.asker.Ask(ctx, prompt, simplify)
}

// SelectSession makes a session from the displayed history list active and
// shows its messages
func (c *Controller) SelectSession(id string) error {
	c.mu.Lock()
	sess, ok := findSession(c.sessions, id)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	c.activeID = sess.ID
	c.activeTitle = sess.Title
	c.messages = append([]history.Message(nil), sess.Messages...)
	c.mu.Unlock()
	c.notify()
	return nil
}

// DeleteSession removes a session from the store. Deleting the active
// session also clears the transcript.
func (c *Controller) DeleteSession(id string) error {
	if err := c.store.Delete(id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	c.mu.Lock()
	c.sessions = c.withInflightLocked(c.store.List())
	if c.activeID == id {
		c.resetActiveLocked()
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// ToggleSimplifyMode flips simplify mode for subsequent submissions and
// returns the new value
func (c *Controller) ToggleSimplifyMode() bool {
	c.mu.Lock()
	c.simplify = !c.simplify
	on := c.simplify
	c.mu.Unlock()
	c.notify()
	return on
}

// SetSimplifyMode sets simplify mode for subsequent submissions
func (c *Controller) SetSimplifyMode(on bool) {
	c.mu.Lock()
	c.simplify = on
	c.mu.Unlock()
	c.notify()
}

// SetCategory records the topic category the user picked
func (c *Controller) SetCategory(category string) {
	c.mu.Lock()
	c.category = category
	c.mu.Unlock()
	c.notify()
}

// RefreshHistory reloads the displayed history list from the store
func (c *Controller) RefreshHistory() {
	list := c.store.List()
	c.mu.Lock()
	c.sessions = c.withInflightLocked(list)
	c.mu.Unlock()
	c.notify()
}

// Snapshot returns a copy of the observable state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	sessions := make([]history.Session, len(c.sessions))
	for i, s := range c.sessions {
		sessions[i] = s.Clone()
	}
	return State{
		Messages:     append([]history.Message{}, c.messages...),
		Loading:      c.phase == PhaseAwaitingAnswer,
		SimplifyMode: c.simplify,
		History:      sessions,
		ActiveID:     c.activeID,
		Phase:        c.phase,
		Category:     c.category,
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change and must not block.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) notify() {
	c.subMu.Lock()
	if len(c.subs) == 0 {
		c.subMu.Unlock()
		return
	}
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	state := c.Snapshot()
	for _, fn := range fns {
		fn(state)
	}
}

// withInflightLocked keeps an unsaved in-flight session at the front of list
func (c *Controller) withInflightLocked(list []history.Session) []history.Session {
	if c.inflight == nil {
		return list
	}
	if _, ok := findSession(list, c.inflight.ID); ok {
		return list
	}
	return append([]history.Session{c.inflight.Clone()}, list...)
}

func findSession(list []history.Session, id string) (history.Session, bool) {
	for _, s := range list {
		if s.ID == id {
			return s, true
		}
	}
	return history.Session{}, false
}

// replaceOrPrepend swaps sess in at the position of the same id, or adds it
// at the front
func replaceOrPrepend(list []history.Session, sess history.Session) []history.Session {
	out := make([]history.Session, 0, len(list)+1)
	found := false
	for _, s := range list {
		if s.ID == sess.ID {
			out = append(out, sess.Clone())
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append([]history.Session{sess.Clone()}, out...)
	}
	return out
}

func upsertFront(list []history.Session, sess history.Session) []history.Session {
	out := make([]history.Session, 0, len(list)+1)
	out = append(out, sess.Clone())
	for _, s := range list {
		if s.ID != sess.ID {
			out = append(out, s)
		}
	}
	return out
}
