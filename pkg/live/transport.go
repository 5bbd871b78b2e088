package live

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mahir-live/mahir/pkg/live/protocol"
)

// Transport is a bidirectional message stream to the live endpoint.
// Send is safe for concurrent use; Receive is single-reader.
type Transport interface {
	Send(msg protocol.ClientMessage) error
	Receive() (protocol.ServerMessage, error)
	Close() error
}

// Dialer opens a Transport authenticated with the given API key.
type Dialer func(ctx context.Context, apiKey string) (Transport, error)

// DialLive connects to the Gemini live websocket endpoint.
func DialLive(ctx context.Context, apiKey string) (Transport, error) {
	endpoint := protocol.Endpoint + "?key=" + url.QueryEscape(apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial live endpoint: %w", err)
	}
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (t *wsTransport) Send(msg protocol.ClientMessage) error {
	data, err := protocol.EncodeClientMessage(msg)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive reads the next server frame. The endpoint delivers JSON as
// binary frames, so both message types are accepted.
func (t *wsTransport) Receive() (protocol.ServerMessage, error) {
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			return protocol.ServerMessage{}, err
		}
		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			return protocol.DecodeServerMessage(data)
		default:
			continue
		}
	}
}

func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		t.writeMu.Unlock()
		_ = t.conn.Close()
	})
	return nil
}
