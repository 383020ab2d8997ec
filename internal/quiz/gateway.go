package quiz

import (
	"log"
	"strings"
	"time"

	"quiznet/internal/protocol"
	"quiznet/internal/registry"
	"quiznet/internal/transport"
)

// Gateway adapts decoded transport events onto the player registry. It is
// the single transport.Handler shared by the TCP, UDP and WebSocket
// listeners.
type Gateway struct {
	reg *registry.Registry
	now func() time.Time
}

func NewGateway(reg *registry.Registry) *Gateway {
	return &Gateway{reg: reg, now: time.Now}
}

// Join registers the player and announces them to the lobby. On rejection
// the mapped error line is written to the offending connection only and the
// error is returned so the listener drops the peer.
func (g *Gateway) Join(name string, conn transport.Conn) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = conn.Origin()
	}

	if err := g.reg.Register(name, conn); err != nil {
		_ = conn.WriteLine(protocol.ErrorMsg{Code: protocol.ErrorCode(err)}.Line())
		log.Printf("rejecting %s from %s: %v", name, conn.Origin(), err)
		return err
	}

	log.Printf("%s joined", name)
	g.reg.Broadcast(protocol.Announce{Text: name + " joined the game"}.Line())
	return nil
}

// Answer records the player's option for the current question. Answers
// outside a collection window, repeats, and answers from unknown players
// are dropped silently.
func (g *Gateway) Answer(name, option string) {
	option = strings.ToUpper(strings.TrimSpace(option))
	if g.reg.RecordAnswer(name, option, g.now()) {
		log.Printf("%s answered %s", name, option)
	}
}

// Leave marks the player disconnected; their score stays on the board.
func (g *Gateway) Leave(name string) {
	g.reg.MarkDisconnected(name)
	log.Printf("%s disconnected", name)
}
