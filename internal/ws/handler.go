// Package ws exposes chat controllers to a browser over JSON-RPC 2.0 on a
// WebSocket. Each connection gets its own controller; the history store is
// shared by the whole process.
package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"

	"techchat/internal/chat"
)

// Server handles JSON-RPC 2.0 over WebSocket.
//
// Every connection has its own controller and so its own busy guard. Two
// connections working on the same session can both have an answer pending,
// and the session saved last wins.
type Server struct {
	store chat.HistoryStore
	asker chat.Asker
	token string
	log   *slog.Logger

	// SimplifyByDefault turns simplify mode on for new connections
	SimplifyByDefault bool
	// InsecureSkipVerify disables the Origin check on upgrade
	InsecureSkipVerify bool

	mu          sync.Mutex
	controllers map[string]*chat.Controller
}

// NewServer creates a server. An empty token disables authentication.
func NewServer(store chat.HistoryStore, asker chat.Asker, token string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store:       store,
		asker:       asker,
		token:       token,
		log:         log,
		controllers: make(map[string]*chat.Controller),
	}
}

// Routes returns the HTTP handler serving /ws and /health
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: s.InsecureSkipVerify,
	})
	if err != nil {
		s.log.Error("failed to accept websocket", "error", err)
		return
	}

	s.handleConnection(r.Context(), conn)
}

// RefreshAll reloads the history list of every live connection
func (s *Server) RefreshAll() {
	s.mu.Lock()
	controllers := make([]*chat.Controller, 0, len(s.controllers))
	for _, c := range s.controllers {
		controllers = append(controllers, c)
	}
	s.mu.Unlock()

	for _, c := range controllers {
		c.RefreshHistory()
	}
}

// Connections returns the number of live connections
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.controllers)
}

func (s *Server) handleConnection(ctx context.Context, wsConn *websocket.Conn) {
	connID := uuid.Must(uuid.NewV7()).String()
	log := s.log.With("connId", connID)
	log.Info("new websocket connection")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctrl := chat.NewController(s.store, s.asker, log)
	if s.SimplifyByDefault {
		ctrl.SetSimplifyMode(true)
	}

	handler := &methodHandler{
		ctrl:          ctrl,
		token:         s.token,
		log:           log,
		authenticated: s.token == "",
		ready:         make(chan struct{}),
	}

	rpcConn := jsonrpc2.NewConn(ctx, newWebSocketStream(ctx, wsConn), jsonrpc2.AsyncHandler(handler))

	unsubscribe := ctrl.Subscribe(func(st chat.State) {
		if !handler.isAuthenticated() {
			return
		}
		if err := rpcConn.Notify(ctx, MethodStateChanged, NewStateView(st)); err != nil {
			log.Debug("failed to push state", "error", err)
		}
	})

	s.mu.Lock()
	s.controllers[connID] = ctrl
	s.mu.Unlock()
	close(handler.ready)

	<-rpcConn.DisconnectNotify()

	unsubscribe()
	s.mu.Lock()
	delete(s.controllers, connID)
	s.mu.Unlock()
	log.Info("connection closed")
}

// methodHandler dispatches JSON-RPC calls of one connection to its controller
type methodHandler struct {
	ctrl  *chat.Controller
	token string
	log   *slog.Logger

	authMu        sync.Mutex
	authenticated bool

	// ready is closed once state notifications are wired up
	ready chan struct{}
}

func (h *methodHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	h.log.Debug("received request", "method", req.Method, "id", req.ID)

	if req.Notif {
		return
	}

	select {
	case <-h.ready:
	case <-ctx.Done():
		return
	}

	if !h.isAuthenticated() {
		if req.Method != "auth" {
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, "first request must be auth")
			conn.Close()
			return
		}
		h.handleAuth(ctx, conn, req)
		return
	}

	switch req.Method {
	case "auth":
		h.reply(ctx, conn, req.ID, struct{}{})
	case "state.get":
		h.reply(ctx, conn, req.ID, NewStateView(h.ctrl.Snapshot()))
	case "chat.submit":
		h.handleSubmit(ctx, conn, req)
	case "chat.new":
		h.ctrl.StartNew()
		h.reply(ctx, conn, req.ID, NewStateView(h.ctrl.Snapshot()))
	case "chat.category":
		h.handleCategory(ctx, conn, req)
	case "session.select":
		h.handleSelect(ctx, conn, req)
	case "session.delete":
		h.handleDelete(ctx, conn, req)
	case "mode.toggle_simplify":
		h.reply(ctx, conn, req.ID, ToggleResult{SimplifyMode: h.ctrl.ToggleSimplifyMode()})
	case "catalog.list":
		h.reply(ctx, conn, req.ID, chat.Catalog())
	case "catalog.suggestions":
		h.handleSuggestions(ctx, conn, req)
	default:
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (h *methodHandler) isAuthenticated() bool {
	h.authMu.Lock()
	defer h.authMu.Unlock()
	return h.authenticated
}

func (h *methodHandler) handleAuth(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params AuthParams
	if !h.decode(ctx, conn, req, &params) {
		conn.Close()
		return
	}

	if subtle.ConstantTimeCompare([]byte(params.Token), []byte(h.token)) != 1 {
		h.log.Warn("invalid auth token")
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, "invalid token")
		conn.Close()
		return
	}

	h.authMu.Lock()
	h.authenticated = true
	h.authMu.Unlock()
	h.log.Info("authenticated")

	h.reply(ctx, conn, req.ID, struct{}{})
}

func (h *methodHandler) handleSubmit(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params SubmitParams
	if !h.decode(ctx, conn, req, &params) {
		return
	}

	h.log.Info("received question", "length", len(params.Content))
	if err := h.ctrl.Submit(ctx, params.Content); err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyInput):
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "content is empty")
		case errors.Is(err, chat.ErrBusy):
			h.replyError(ctx, conn, req.ID, CodeBusy, "an answer is already pending")
		default:
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, err.Error())
		}
		return
	}

	h.reply(ctx, conn, req.ID, NewStateView(h.ctrl.Snapshot()))
}

func (h *methodHandler) handleCategory(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params CategoryParams
	if !h.decode(ctx, conn, req, &params) {
		return
	}
	if params.Category != "" && !chat.IsCategory(params.Category) {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "unknown category: "+params.Category)
		return
	}
	h.ctrl.SetCategory(params.Category)
	h.reply(ctx, conn, req.ID, chat.Suggestions(params.Category))
}

func (h *methodHandler) handleSelect(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params SessionParams
	if !h.decode(ctx, conn, req, &params) {
		return
	}
	if err := h.ctrl.SelectSession(params.ID); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "session not found")
		return
	}
	h.reply(ctx, conn, req.ID, NewStateView(h.ctrl.Snapshot()))
}

func (h *methodHandler) handleDelete(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params SessionParams
	if !h.decode(ctx, conn, req, &params) {
		return
	}
	if err := h.ctrl.DeleteSession(params.ID); err != nil {
		h.log.Error("failed to delete session", "session", params.ID, "error", err)
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, "failed to delete session")
		return
	}
	h.reply(ctx, conn, req.ID, NewStateView(h.ctrl.Snapshot()))
}

func (h *methodHandler) handleSuggestions(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params SuggestionsParams
	if !h.decode(ctx, conn, req, &params) {
		return
	}
	h.reply(ctx, conn, req.ID, chat.Suggestions(params.Category))
}

// decode unmarshals request params, replying with an error when they are
// missing or malformed
func (h *methodHandler) decode(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, v interface{}) bool {
	if req.Params == nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "missing params")
		return false
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return false
	}
	return true
}

func (h *methodHandler) reply(ctx context.Context, conn *jsonrpc2.Conn, id jsonrpc2.ID, result interface{}) {
	if err := conn.Reply(ctx, id, result); err != nil {
		h.log.Error("failed to send response", "error", err)
	}
}

func (h *methodHandler) replyError(ctx context.Context, conn *jsonrpc2.Conn, id jsonrpc2.ID, code int64, message string) {
	err := &jsonrpc2.Error{
		Code:    code,
		Message: message,
	}
	if replyErr := conn.ReplyWithError(ctx, id, err); replyErr != nil {
		h.log.Error("failed to send error response", "error", replyErr)
	}
}
