// Package ws serves the quiz line protocol over WebSocket connections, one
// text message per line.
package ws

import (
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quiznet/internal/protocol"
	"quiznet/internal/transport"
)

const (
	writeTimeout = 5 * time.Second
	probeTimeout = 2 * time.Second
)

// Handler upgrades HTTP requests and wires each socket into the quiz.
type Handler struct {
	handler  transport.Handler
	upgrader websocket.Upgrader
}

func NewHandler(handler transport.Handler) *Handler {
	return &Handler{
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request to a websocket. The first message must be
// join:<name>; everything after that is answer lines.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer socket.Close()

	connID := uuid.New().String()
	log.Printf("ws connection %s from %s", connID, socket.RemoteAddr())

	_, data, err := socket.ReadMessage()
	if err != nil {
		return
	}
	msg, err := protocol.Parse(string(data))
	if err != nil {
		return
	}
	join, ok := msg.(protocol.Join)
	if !ok {
		return
	}
	name := join.Name
	if name == "" {
		name = socket.RemoteAddr().String()
	}

	c := newConn(socket)
	if err := h.handler.Join(name, c); err != nil {
		return
	}
	defer h.handler.Leave(name)

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			break
		}
		msg, err := protocol.Parse(strings.TrimSpace(string(data)))
		if err != nil {
			continue
		}
		if answer, ok := msg.(protocol.Answer); ok {
			h.handler.Answer(name, answer.Option)
		}
	}
	log.Printf("ws connection %s closed", connID)
}

// conn adapts a websocket to the transport contract. gorilla permits only
// one concurrent writer, so every write takes the mutex.
type conn struct {
	mu     sync.Mutex
	socket *websocket.Conn
}

func newConn(socket *websocket.Conn) *conn { return &conn{socket: socket} }

func (c *conn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.socket.WriteMessage(websocket.TextMessage, []byte(line))
}

// Probe sends a ping control frame instead of a payload line.
func (c *conn) Probe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(probeTimeout))
}

func (c *conn) Origin() string {
	addr := c.socket.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (c *conn) Close() error { return c.socket.Close() }
