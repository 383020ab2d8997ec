package ws

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiznet/internal/quiz"
	"quiznet/internal/registry"
)

func startServer(t *testing.T, reg *registry.Registry) string {
	t.Helper()
	handler := NewHandler(quiz.NewGateway(reg))
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	mux.HandleFunc("/qr", ServeQR)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL
}

func dialWS(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	u := "ws" + serverURL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestWebSocketJoinAnswerLeaveFlow(t *testing.T) {
	reg := registry.New(0)
	url := startServer(t, reg)

	conn := dialWS(t, url)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("join:alice")); err != nil {
		t.Fatalf("write join: %v", err)
	}
	if got := readMessage(t, conn); got != "broadcast:alice joined the game" {
		t.Fatalf("join announcement = %q", got)
	}

	reg.BeginRound()
	if err := conn.WriteMessage(websocket.TextMessage, []byte("answer:c")); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	waitFor(t, func() bool {
		alive := reg.SnapshotAlive()
		return len(alive) == 1 && alive[0].LastAnswer == "C"
	}, "answer was not recorded")

	conn.Close()
	waitFor(t, func() bool { return reg.AliveCount() == 0 }, "disconnect was not observed")
}

func TestWebSocketRejectsDuplicateName(t *testing.T) {
	reg := registry.New(0)
	url := startServer(t, reg)

	first := dialWS(t, url)
	if err := first.WriteMessage(websocket.TextMessage, []byte("join:alice")); err != nil {
		t.Fatalf("write join: %v", err)
	}
	readMessage(t, first)

	second := dialWS(t, url)
	if err := second.WriteMessage(websocket.TextMessage, []byte("join:alice")); err != nil {
		t.Fatalf("write join: %v", err)
	}
	if got := readMessage(t, second); got != "error:username_taken" {
		t.Fatalf("rejection = %q", got)
	}
	_ = second.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Fatal("server kept a rejected socket open")
	}
}

func TestWebSocketFirstMessageMustBeJoin(t *testing.T) {
	reg := registry.New(0)
	url := startServer(t, reg)

	conn := dialWS(t, url)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("answer:B")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the socket to be closed")
	}
	if got := reg.AliveCount(); got != 0 {
		t.Fatalf("AliveCount = %d, want 0", got)
	}
}

func TestServeQR(t *testing.T) {
	reg := registry.New(0)
	url := startServer(t, reg)

	resp, err := http.Get(url + "/qr")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "image/png" {
		t.Fatalf("content type = %q", got)
	}
	buf := make([]byte, 8)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.HasPrefix(buf, []byte("\x89PNG")) {
		t.Fatalf("body does not look like a PNG: %q", buf)
	}
}
