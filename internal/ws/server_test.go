package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ydkdan6/poly-com-ai/internal/service"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/relay"
)

type fakeRelay struct {
	resp relay.Response
	err  error
	got  chan relay.Request
}

func (f *fakeRelay) Relay(_ context.Context, req relay.Request) (relay.Response, error) {
	if f.got != nil {
		f.got <- req
	}
	return f.resp, f.err
}

type reply struct {
	Type    string          `json:"type"`
	Status  int             `json:"status"`
	Raw     json.RawMessage `json:"content"`
	Content relay.Response  `json:"-"`
}

func dial(t *testing.T, r *fakeRelay, origins []string) (*websocket.Conn, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := NewServer(r, origins, logger.Nop())
	engine := gin.New()
	engine.GET("/ws/chat", srv.ServeWs)

	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/chat", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn, srv
}

func send(t *testing.T, conn *websocket.Conn, frame string) reply {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))

	var out reply
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	if out.Type == TypeReply {
		require.NoError(t, json.Unmarshal(out.Raw, &out.Content))
	}
	return out
}

func TestChatFrameGetsOneReply(t *testing.T) {
	fr := &fakeRelay{resp: relay.Response{Response: "The HOD's office is in Block A."}, got: make(chan relay.Request, 1)}
	conn, _ := dial(t, fr, nil)

	out := send(t, conn, `{"type":"chat","content":{"message":"Where is the HOD?","sessionId":"s-1"}}`)

	assert.Equal(t, TypeReply, out.Type)
	assert.Equal(t, 200, out.Status)
	assert.Equal(t, "The HOD's office is in Block A.", out.Content.Response)

	req := <-fr.got
	assert.Equal(t, "Where is the HOD?", req.Message)
	require.NotNil(t, req.SessionID)
	assert.Equal(t, "s-1", *req.SessionID)
}

func TestChatFrameFailure(t *testing.T) {
	fr := &fakeRelay{err: &service.RelayError{Kind: relay.KindTimeout, Err: context.DeadlineExceeded}}
	conn, _ := dial(t, fr, []string{"*"})

	out := send(t, conn, `{"type":"chat","content":{"message":"hi"}}`)

	assert.Equal(t, 500, out.Status)
	assert.Equal(t, relay.KindTimeout, out.Content.Kind)
	assert.Equal(t, relay.TechnicalDifficulties, out.Content.Response)
	assert.NotEmpty(t, out.Content.Error)
}

func TestUnsupportedFrame(t *testing.T) {
	conn, srv := dial(t, &fakeRelay{}, nil)

	out := send(t, conn, `{"type":"typing","content":{}}`)
	assert.Equal(t, TypeError, out.Type)
	assert.JSONEq(t, `"unsupported frame type: typing"`, string(out.Raw))
	assert.Equal(t, 1, srv.Count())
}

func TestReadPumpStopsWhenWriterIsGone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServer(&fakeRelay{}, nil, logger.Nop())
	done := make(chan struct{})

	engine := gin.New()
	engine.GET("/ws/chat", func(c *gin.Context) {
		conn, err := srv.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		// nothing drains send, as after the writer has exited
		client := &Client{ID: "stalled", conn: conn, send: make(chan Outbound), server: srv, log: logger.Nop()}
		srv.register(client)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		go func() {
			client.readPump(ctx, cancel)
			close(done)
		}()
	})
	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/chat", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	for i := 0; i < 3; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"typing","content":{}}`)); err != nil {
			break
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop still blocked on a writer that is gone")
	}
	assert.Equal(t, 0, srv.Count())
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://cs.kadpoly.test"})

	req := httptest.NewRequest("GET", "/ws/chat", nil)
	req.Header.Set("Origin", "https://cs.kadpoly.test")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.test")
	assert.False(t, check(req))
}
