package quiz

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"quiznet/internal/domain"
	"quiznet/internal/registry"
)

// testConn collects written lines; shared by the gateway, round and
// director tests.
type testConn struct {
	mu       sync.Mutex
	origin   string
	lines    []string
	probeErr error
}

func newTestConn(origin string) *testConn { return &testConn{origin: origin} }

func (c *testConn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	return nil
}

func (c *testConn) Probe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.probeErr
}

func (c *testConn) Origin() string { return c.origin }
func (c *testConn) Close() error   { return nil }

func (c *testConn) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func (c *testConn) received(prefix string) bool {
	for _, line := range c.sent() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func (c *testConn) count(prefix string) int {
	n := 0
	for _, line := range c.sent() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

func TestGatewayJoinAnnouncesToEveryone(t *testing.T) {
	reg := registry.New(0)
	gw := NewGateway(reg)

	alice := newTestConn("10.0.0.1")
	bob := newTestConn("10.0.0.2")
	if err := gw.Join("alice", alice); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := gw.Join("bob", bob); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !alice.received("broadcast:bob joined the game") {
		t.Fatalf("alice did not see the join announcement: %v", alice.sent())
	}
	if !bob.received("broadcast:bob joined the game") {
		t.Fatalf("joiner did not see their own announcement: %v", bob.sent())
	}
}

func TestGatewayJoinRejectionsWriteErrorLine(t *testing.T) {
	reg := registry.New(0)
	gw := NewGateway(reg)

	if err := gw.Join("alice", newTestConn("10.0.0.1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := newTestConn("10.0.0.2")
	if err := gw.Join("alice", dup); !errors.Is(err, domain.ErrNameTaken) {
		t.Fatalf("err = %v, want ErrNameTaken", err)
	}
	if got := dup.sent(); len(got) != 1 || got[0] != "error:username_taken" {
		t.Fatalf("rejected conn received %v", got)
	}

	sameBox := newTestConn("10.0.0.1")
	if err := gw.Join("bob", sameBox); !errors.Is(err, domain.ErrOriginTaken) {
		t.Fatalf("err = %v, want ErrOriginTaken", err)
	}
	if got := sameBox.sent(); len(got) != 1 || got[0] != "error:duplicate_origin" {
		t.Fatalf("rejected conn received %v", got)
	}
}

func TestGatewayJoinEmptyNameFallsBackToOrigin(t *testing.T) {
	reg := registry.New(0)
	gw := NewGateway(reg)

	if err := gw.Join("   ", newTestConn("10.0.0.7")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	board := reg.Scoreboard()
	if len(board) != 1 || board[0].Name != "10.0.0.7" {
		t.Fatalf("scoreboard = %+v", board)
	}
}

func TestGatewayAnswerNormalizesOption(t *testing.T) {
	reg := registry.New(0)
	gw := NewGateway(reg)
	if err := gw.Join("alice", newTestConn("10.0.0.1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reg.BeginRound()
	gw.Answer("alice", " c ")

	alive := reg.SnapshotAlive()
	if len(alive) != 1 || alive[0].LastAnswer != "C" {
		t.Fatalf("recorded answer = %+v", alive)
	}
}

func TestGatewayLeaveMarksDisconnected(t *testing.T) {
	reg := registry.New(0)
	gw := NewGateway(reg)
	if err := gw.Join("alice", newTestConn("10.0.0.1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gw.Leave("alice")
	if got := reg.AliveCount(); got != 0 {
		t.Fatalf("AliveCount = %d, want 0", got)
	}
}
