package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"github.com/sourcegraph/jsonrpc2"
)

// webSocketStream carries one JSON-RPC object per text frame. Reads and
// writes stop when ctx is cancelled.
type webSocketStream struct {
	ctx  context.Context
	conn *websocket.Conn
	mu   sync.Mutex // serialises writes
}

func newWebSocketStream(ctx context.Context, conn *websocket.Conn) *webSocketStream {
	return &webSocketStream{ctx: ctx, conn: conn}
}

func (s *webSocketStream) ReadObject(v interface{}) error {
	_, data, err := s.conn.Read(s.ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *webSocketStream) WriteObject(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(s.ctx, websocket.MessageText, data)
}

func (s *webSocketStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

var _ jsonrpc2.ObjectStream = (*webSocketStream)(nil)
