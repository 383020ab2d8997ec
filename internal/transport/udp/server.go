// Package udp serves the quiz line protocol over a single UDP socket. Each
// datagram carries exactly one line with no terminator.
package udp

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"

	"quiznet/internal/protocol"
	"quiznet/internal/transport"
)

// Server reads datagrams from one socket and tracks which remote address
// belongs to which player.
type Server struct {
	addr    string
	handler transport.Handler

	mu    sync.Mutex
	uc    *net.UDPConn
	peers map[string]string // remote addr -> username
}

func NewServer(addr string, handler transport.Handler) *Server {
	return &Server{
		addr:    addr,
		handler: handler,
		peers:   make(map[string]string),
	}
}

// Addr returns the bound socket address, or nil before Run has started
// listening. Useful when the server was configured with port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uc == nil {
		return nil
	}
	return s.uc.LocalAddr()
}

// Run reads the socket until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", s.addr)
	if err != nil {
		return fmt.Errorf("listen udp %s: %w", s.addr, err)
	}
	uc := pc.(*net.UDPConn)
	s.mu.Lock()
	s.uc = uc
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		uc.Close()
	}()
	log.Printf("udp listening on %s", uc.LocalAddr())

	buf := make([]byte, 64*1024)
	for {
		n, addr, err := uc.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("udp read: %w", err)
		}
		s.dispatch(uc, addr, strings.TrimSpace(string(buf[:n])))
	}
}

func (s *Server) dispatch(uc *net.UDPConn, addr *net.UDPAddr, line string) {
	if line == "" {
		return
	}
	msg, err := protocol.Parse(line)
	if err != nil {
		return
	}

	key := addr.String()
	s.mu.Lock()
	name, known := s.peers[key]
	s.mu.Unlock()

	switch m := msg.(type) {
	case protocol.Join:
		// Clients retry joins against datagram loss; a repeat from a known
		// peer must not surface a duplicate-name error.
		if known {
			return
		}
		joinName := m.Name
		if joinName == "" {
			joinName = key
		}
		if err := s.handler.Join(joinName, &conn{uc: uc, addr: addr}); err != nil {
			return
		}
		s.mu.Lock()
		s.peers[key] = joinName
		s.mu.Unlock()
	case protocol.Answer:
		if known {
			s.handler.Answer(name, m.Option)
		}
	}
}

// conn addresses one peer through the shared socket. UDPConn is safe for
// concurrent writes, so no extra locking is needed.
type conn struct {
	uc   *net.UDPConn
	addr *net.UDPAddr
}

func (c *conn) WriteLine(line string) error {
	_, err := c.uc.WriteToUDP([]byte(line), c.addr)
	return err
}

// Probe always succeeds. UDP cannot observe a vanished peer; the round
// deadline is what keeps a quiz with silent clients moving.
func (c *conn) Probe() error { return nil }

func (c *conn) Origin() string { return c.addr.IP.String() }

// Close is a no-op: the socket is shared with every other peer.
func (c *conn) Close() error { return nil }
