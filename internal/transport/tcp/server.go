// Package tcp serves the quiz line protocol over persistent TCP
// connections, one reader goroutine per client.
package tcp

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiznet/internal/protocol"
	"quiznet/internal/transport"
)

const writeTimeout = 5 * time.Second

// Server accepts quiz clients on a TCP listener.
type Server struct {
	addr    string
	handler transport.Handler

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, handler transport.Handler) *Server {
	return &Server{addr: addr, handler: handler}
}

// Addr returns the bound listener address, or nil before Run has started
// listening. Useful when the server was configured with port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Run accepts connections until ctx is cancelled. Per-connection readers
// outlive Run and exit when their peer disconnects.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	log.Printf("tcp listening on %s", ln.Addr())

	for {
		netConn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handle(netConn)
	}
}

func (s *Server) handle(netConn net.Conn) {
	c := newConn(netConn)
	defer c.Close()

	connID := uuid.New().String()
	log.Printf("tcp connection %s from %s", connID, netConn.RemoteAddr())

	scanner := bufio.NewScanner(netConn)
	scanner.Buffer(make([]byte, 0, 1024), 64*1024)

	if !scanner.Scan() {
		log.Printf("tcp connection %s closed before joining", connID)
		return
	}

	// The first line is join:<name>. Legacy clients send the bare username;
	// an empty line falls back to the remote address.
	first := strings.TrimSpace(scanner.Text())
	name := first
	if rest, ok := strings.CutPrefix(first, "join:"); ok {
		name = strings.TrimSpace(rest)
	}
	if name == "" {
		name = netConn.RemoteAddr().String()
	}

	if err := s.handler.Join(name, c); err != nil {
		return
	}
	defer s.handler.Leave(name)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		msg, err := protocol.Parse(line)
		if err != nil {
			continue
		}
		if answer, ok := msg.(protocol.Answer); ok {
			s.handler.Answer(name, answer.Option)
		}
	}
	log.Printf("tcp connection %s closed", connID)
}

// conn adapts a net.Conn to the transport contract. The mutex serializes
// writes from the engine's broadcast goroutine and the liveness probe.
type conn struct {
	mu sync.Mutex
	nc net.Conn
}

func newConn(nc net.Conn) *conn { return &conn{nc: nc} }

func (c *conn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.nc.Write([]byte(line + "\n"))
	return err
}

// Probe performs a zero-byte write, which surfaces a dead socket without
// putting a payload on the wire.
func (c *conn) Probe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.nc.Write(nil)
	return err
}

func (c *conn) Origin() string {
	addr := c.nc.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (c *conn) Close() error { return c.nc.Close() }
