package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techchat/internal/history"
	"techchat/internal/logger"
)

// stubAsker answers with reply. When gate is set, Ask signals started and
// waits for gate to close first.
type stubAsker struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	started chan struct{}
	gate    chan struct{}
}

func (a *stubAsker) Ask(_ context.Context, prompt string, simplify bool) string {
	a.mu.Lock()
	if simplify {
		prompt = "simple: " + prompt
	}
	a.prompts = append(a.prompts, prompt)
	a.mu.Unlock()

	if a.gate != nil {
		a.started <- struct{}{}
		<-a.gate
	}
	return a.reply
}

func (a *stubAsker) Prompts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.prompts...)
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpc2.Error `json:"error,omitempty"`
}

type testMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	HTML    string `json:"html"`
}

type testState struct {
	Messages     []testMessage    `json:"messages"`
	Loading      bool             `json:"loading"`
	SimplifyMode bool             `json:"simplifyMode"`
	History      []SessionSummary `json:"history"`
	ActiveID     string           `json:"activeId"`
	Phase        string           `json:"phase"`
	Category     string           `json:"category"`
}

type testEnv struct {
	t      *testing.T
	server *Server
	store  *history.Store
	asker  *stubAsker
	http   *httptest.Server
	conn   *websocket.Conn
	ctx    context.Context
	reqID  int
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	store := history.NewStore(history.NewMemoryBackend(), history.DefaultMaxSessions, logger.Discard())
	asker := &stubAsker{reply: "Use **Grid** with `display: grid`.\n```css\n.a { display: grid; }\n```"}
	srv := NewServer(store, asker, token, logger.Discard())
	httpSrv := httptest.NewServer(srv.Routes())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(httpSrv.URL, "http")+"/ws", nil)
	if err != nil {
		cancel()
		httpSrv.Close()
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		conn.Close(websocket.StatusNormalClosure, "")
		cancel()
		httpSrv.Close()
	})

	return &testEnv{t: t, server: srv, store: store, asker: asker, http: httpSrv, conn: conn, ctx: ctx}
}

// peer opens a second connection to the same server
func (e *testEnv) peer() *testEnv {
	e.t.Helper()
	conn, _, err := websocket.Dial(e.ctx, "ws"+strings.TrimPrefix(e.http.URL, "http")+"/ws", nil)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	p := *e
	p.conn = conn
	p.reqID = 0
	return &p
}

// call sends a request and reads until its response, returning the response
// and the notifications that arrived first
func (e *testEnv) call(method string, params interface{}) (rpcMessage, []rpcMessage) {
	e.t.Helper()
	return e.await(e.send(method, params))
}

func (e *testEnv) send(method string, params interface{}) int {
	e.t.Helper()
	e.reqID++
	data, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: e.reqID, Method: method, Params: params})
	require.NoError(e.t, err)
	require.NoError(e.t, e.conn.Write(e.ctx, websocket.MessageText, data))
	return e.reqID
}

func (e *testEnv) await(id int) (rpcMessage, []rpcMessage) {
	e.t.Helper()
	var notifications []rpcMessage
	for {
		msg := e.read()
		if msg.ID != nil && *msg.ID == id && msg.Method == "" {
			return msg, notifications
		}
		notifications = append(notifications, msg)
	}
}

func (e *testEnv) read() rpcMessage {
	e.t.Helper()
	_, data, err := e.conn.Read(e.ctx)
	require.NoError(e.t, err)

	var msg rpcMessage
	require.NoError(e.t, json.Unmarshal(data, &msg))
	return msg
}

func decodeState(t *testing.T, raw json.RawMessage) testState {
	t.Helper()
	var st testState
	require.NoError(t, json.Unmarshal(raw, &st))
	return st
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")

	resp, err := http.Get(env.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestStateGetInitial(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.call("state.get", nil)
	require.Nil(t, resp.Error)

	st := decodeState(t, resp.Result)
	assert.Empty(t, st.Messages)
	assert.Empty(t, st.History)
	assert.Equal(t, "idle", st.Phase)
	assert.False(t, st.Loading)
}

func TestSubmitRendersHTMLAndPersists(t *testing.T) {
	env := newTestEnv(t, "")

	resp, notes := env.call("chat.submit", SubmitParams{Content: "What is CSS Grid?"})
	require.Nil(t, resp.Error)

	st := decodeState(t, resp.Result)
	require.Len(t, st.Messages, 2)
	assert.Equal(t, "user", st.Messages[0].Role)
	assert.Equal(t, "What is CSS Grid?", st.Messages[0].HTML)
	assert.Contains(t, st.Messages[1].HTML, "<strong>Grid</strong>")
	assert.Contains(t, st.Messages[1].HTML, `<code class="inline-code">display: grid</code>`)
	assert.Contains(t, st.Messages[1].HTML, `data-code=".a { display: grid; }"`)

	require.Len(t, st.History, 1)
	assert.Equal(t, "What is CSS Grid?", st.History[0].Title)
	assert.Equal(t, 2, st.History[0].MessageCount)
	assert.Len(t, env.store.List(), 1)

	require.Len(t, notes, 2)
	first := decodeState(t, notes[0].Params)
	assert.Equal(t, MethodStateChanged, notes[0].Method)
	assert.True(t, first.Loading)
	assert.Equal(t, "awaiting_answer", first.Phase)
	last := decodeState(t, notes[1].Params)
	assert.False(t, last.Loading)
}

func TestSubmitEmptyContent(t *testing.T) {
	env := newTestEnv(t, "")

	resp, notes := env.call("chat.submit", SubmitParams{Content: "   "})
	require.NotNil(t, resp.Error)
	assert.Equal(t, int64(jsonrpc2.CodeInvalidParams), resp.Error.Code)
	assert.Empty(t, notes)
	assert.Empty(t, env.store.List())
}

func TestToggleSimplifyAndNewChat(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.call("mode.toggle_simplify", nil)
	require.Nil(t, resp.Error)
	var toggled ToggleResult
	require.NoError(t, json.Unmarshal(resp.Result, &toggled))
	assert.True(t, toggled.SimplifyMode)

	env.call("chat.submit", SubmitParams{Content: "Explain recursion"})
	assert.Equal(t, []string{"simple: Explain recursion"}, env.asker.Prompts())

	resp, _ = env.call("chat.new", nil)
	st := decodeState(t, resp.Result)
	assert.Empty(t, st.Messages)
	assert.Empty(t, st.ActiveID)
	assert.Len(t, st.History, 1)
}

func TestSelectAndDeleteSession(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.call("chat.submit", SubmitParams{Content: "What is pandas?"})
	id := decodeState(t, resp.Result).ActiveID
	require.NotEmpty(t, id)
	env.call("chat.new", nil)

	resp, _ = env.call("session.select", SessionParams{ID: id})
	require.Nil(t, resp.Error)
	st := decodeState(t, resp.Result)
	assert.Equal(t, id, st.ActiveID)
	assert.Len(t, st.Messages, 2)

	resp, _ = env.call("session.select", SessionParams{ID: "missing"})
	require.NotNil(t, resp.Error)

	resp, _ = env.call("session.delete", SessionParams{ID: id})
	require.Nil(t, resp.Error)
	st = decodeState(t, resp.Result)
	assert.Empty(t, st.ActiveID)
	assert.Empty(t, st.Messages)
	assert.Empty(t, env.store.List())
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.call("catalog.suggestions", SuggestionsParams{Category: "Programming"})
	require.Nil(t, resp.Error)
	var suggestions []string
	require.NoError(t, json.Unmarshal(resp.Result, &suggestions))
	assert.Equal(t, "What is recursion?", suggestions[1])

	resp, _ = env.call("catalog.list", nil)
	require.Nil(t, resp.Error)
	var catalog []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &catalog))
	assert.Len(t, catalog, 5)

	resp, _ = env.call("chat.category", CategoryParams{Category: "Cooking"})
	require.NotNil(t, resp.Error)
}

func TestUnknownMethod(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.call("chat.stream", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), resp.Error.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, "secret")

	resp, _ := env.call("state.get", nil)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "first request must be auth")
}

func TestAuthInvalidToken(t *testing.T) {
	env := newTestEnv(t, "secret")

	resp, _ := env.call("auth", AuthParams{Token: "wrong"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid token", resp.Error.Message)
}

func TestAuthThenCall(t *testing.T) {
	env := newTestEnv(t, "secret")

	resp, _ := env.call("auth", AuthParams{Token: "secret"})
	require.Nil(t, resp.Error)

	resp, _ = env.call("state.get", nil)
	assert.Nil(t, resp.Error)
}

func TestRefreshAllPushesHistory(t *testing.T) {
	env := newTestEnv(t, "")
	env.call("state.get", nil)
	require.Eventually(t, func() bool { return env.server.Connections() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, env.store.Save(history.Session{
		ID:       "external",
		Title:    "Saved elsewhere",
		Messages: []history.Message{{Role: history.RoleUser, Content: "hi"}},
	}))
	env.server.RefreshAll()

	note := env.read()
	assert.Equal(t, MethodStateChanged, note.Method)
	st := decodeState(t, note.Params)
	require.Len(t, st.History, 1)
	assert.Equal(t, "external", st.History[0].ID)
}

func TestBusyGuardIsPerConnection(t *testing.T) {
	env := newTestEnv(t, "")
	env.asker.started = make(chan struct{}, 2)
	env.asker.gate = make(chan struct{})
	other := env.peer()

	first := env.send("chat.submit", SubmitParams{Content: "What is recursion?"})
	<-env.asker.started

	// a second tab is not blocked by the first tab's pending answer
	second := other.send("chat.submit", SubmitParams{Content: "What is pandas?"})
	<-env.asker.started
	close(env.asker.gate)

	resp, _ := env.await(first)
	require.Nil(t, resp.Error)
	resp, _ = other.await(second)
	require.Nil(t, resp.Error)

	assert.Len(t, env.store.List(), 2)
}
