package registry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"quiznet/internal/domain"
)

type fakeConn struct {
	mu       sync.Mutex
	origin   string
	lines    []string
	probeErr error
	writeErr error
}

func newFakeConn(origin string) *fakeConn { return &fakeConn{origin: origin} }

func (c *fakeConn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.lines = append(c.lines, line)
	return nil
}

func (c *fakeConn) Probe() error   { return c.probeErr }
func (c *fakeConn) Origin() string { return c.origin }
func (c *fakeConn) Close() error   { return nil }

func (c *fakeConn) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := New(2)

	if err := r.Register("alice", newFakeConn("10.0.0.1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register("alice", newFakeConn("10.0.0.2")); !errors.Is(err, domain.ErrNameTaken) {
		t.Fatalf("duplicate name: err = %v, want ErrNameTaken", err)
	}
	if err := r.Register("bob", newFakeConn("10.0.0.1")); !errors.Is(err, domain.ErrOriginTaken) {
		t.Fatalf("duplicate origin: err = %v, want ErrOriginTaken", err)
	}
	if err := r.Register("bob", newFakeConn("10.0.0.2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register("cara", newFakeConn("10.0.0.3")); !errors.Is(err, domain.ErrLobbyFull) {
		t.Fatalf("over capacity: err = %v, want ErrLobbyFull", err)
	}
}

func TestRejoinKeepsScoreAndStreak(t *testing.T) {
	r := New(0)
	if err := r.Register("alice", newFakeConn("10.0.0.1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.ApplyCorrect("alice", 900)
	r.MarkDisconnected("alice")
	if got := r.AliveCount(); got != 0 {
		t.Fatalf("AliveCount = %d, want 0", got)
	}

	// Same name from a new origin revives the record.
	if err := r.Register("alice", newFakeConn("10.0.0.9")); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	board := r.Scoreboard()
	if len(board) != 1 || board[0].Points != 900 || board[0].Streak != 1 {
		t.Fatalf("scoreboard after rejoin = %+v", board)
	}
	if got := r.AliveCount(); got != 1 {
		t.Fatalf("AliveCount = %d, want 1", got)
	}
}

func TestDeadNameFreesOriginSlot(t *testing.T) {
	r := New(0)
	if err := r.Register("alice", newFakeConn("10.0.0.1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.MarkDisconnected("alice")
	if err := r.Register("bob", newFakeConn("10.0.0.1")); err != nil {
		t.Fatalf("origin of a dead player should be free: %v", err)
	}
}

func TestRecordAnswerFirstWriteWins(t *testing.T) {
	r := New(0)
	if err := r.Register("alice", newFakeConn("10.0.0.1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t0 := time.Now()
	if r.RecordAnswer("alice", "B", t0) {
		t.Fatal("answer outside a round should be dropped")
	}

	r.BeginRound()
	if !r.RecordAnswer("alice", "B", t0) {
		t.Fatal("first answer should be recorded")
	}
	if r.RecordAnswer("alice", "C", t0.Add(time.Second)) {
		t.Fatal("second answer should be dropped")
	}

	alive := r.SnapshotAlive()
	if len(alive) != 1 {
		t.Fatalf("SnapshotAlive = %d players, want 1", len(alive))
	}
	p := alive[0]
	if p.LastAnswer != "B" || !p.AnswerAt.Equal(t0) || p.AnswerSeq != 1 {
		t.Fatalf("recorded answer = %q at %v seq %d", p.LastAnswer, p.AnswerAt, p.AnswerSeq)
	}

	r.EndCollection()
	if r.RecordAnswer("alice", "C", t0.Add(2*time.Second)) {
		t.Fatal("answer after collection closed should be dropped")
	}
}

func TestBeginRoundClearsAnswers(t *testing.T) {
	r := New(0)
	if err := r.Register("alice", newFakeConn("10.0.0.1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.BeginRound()
	r.RecordAnswer("alice", "A", time.Now())
	r.BeginRound()
	if p := r.SnapshotAlive()[0]; p.Answered() || p.LastAnswer != "" {
		t.Fatalf("answer not cleared: %+v", p)
	}
}

func TestObservationSequenceBreaksTimestampTies(t *testing.T) {
	r := New(0)
	for _, name := range []string{"alice", "bob"} {
		if err := r.Register(name, newFakeConn("10.0.0."+name)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	r.BeginRound()

	at := time.Now()
	r.RecordAnswer("bob", "A", at)
	r.RecordAnswer("alice", "A", at)

	for _, p := range r.SnapshotAlive() {
		switch p.Name {
		case "bob":
			if p.AnswerSeq != 1 {
				t.Fatalf("bob seq = %d, want 1", p.AnswerSeq)
			}
		case "alice":
			if p.AnswerSeq != 2 {
				t.Fatalf("alice seq = %d, want 2", p.AnswerSeq)
			}
		}
	}
}

func TestAllAnswered(t *testing.T) {
	r := New(0)
	if r.AllAnswered() {
		t.Fatal("empty registry must not read as all answered")
	}

	r.Register("alice", newFakeConn("10.0.0.1"))
	r.Register("bob", newFakeConn("10.0.0.2"))
	r.BeginRound()

	r.RecordAnswer("alice", "A", time.Now())
	if r.AllAnswered() {
		t.Fatal("one of two answered")
	}
	r.MarkDisconnected("bob")
	if !r.AllAnswered() {
		t.Fatal("dead players must not block completion")
	}
}

func TestReapDeadMarksFailedProbes(t *testing.T) {
	r := New(0)
	healthy := newFakeConn("10.0.0.1")
	broken := newFakeConn("10.0.0.2")
	broken.probeErr = errors.New("connection reset")

	r.Register("alice", healthy)
	r.Register("bob", broken)

	if got := r.ReapDead(); got != 1 {
		t.Fatalf("ReapDead = %d, want 1", got)
	}
	if got := r.AliveCount(); got != 1 {
		t.Fatalf("AliveCount = %d, want 1", got)
	}

	alive := r.SnapshotAlive()
	if len(alive) != 1 || alive[0].Name != "alice" {
		t.Fatalf("alive after reap = %+v", alive)
	}
}

func TestBroadcastReachesOnlyAlive(t *testing.T) {
	r := New(0)
	alice := newFakeConn("10.0.0.1")
	bob := newFakeConn("10.0.0.2")
	flaky := newFakeConn("10.0.0.3")
	flaky.writeErr = errors.New("broken pipe")

	r.Register("alice", alice)
	r.Register("bob", bob)
	r.Register("cara", flaky)
	r.MarkDisconnected("bob")

	r.Broadcast("timer:5")

	if got := alice.sent(); len(got) != 1 || got[0] != "timer:5" {
		t.Fatalf("alice received %v", got)
	}
	if got := bob.sent(); len(got) != 0 {
		t.Fatalf("dead player received %v", got)
	}
}

func TestSendTo(t *testing.T) {
	r := New(0)
	alice := newFakeConn("10.0.0.1")
	r.Register("alice", alice)

	r.SendTo("alice", "feedback:alice:correct:900:2.0")
	r.SendTo("ghost", "feedback:ghost:wrong:0:0")

	if got := alice.sent(); len(got) != 1 || got[0] != "feedback:alice:correct:900:2.0" {
		t.Fatalf("alice received %v", got)
	}
}

func TestScoreboardRanksWithStableTies(t *testing.T) {
	r := New(0)
	r.Register("alice", newFakeConn("10.0.0.1"))
	r.Register("bob", newFakeConn("10.0.0.2"))
	r.Register("cara", newFakeConn("10.0.0.3"))

	r.ApplyCorrect("alice", 500)
	r.ApplyCorrect("bob", 900)
	r.ApplyCorrect("cara", 500)
	r.MarkDisconnected("bob")

	board := r.Scoreboard()
	want := []string{"bob", "alice", "cara"}
	if len(board) != len(want) {
		t.Fatalf("scoreboard has %d entries, want %d", len(board), len(want))
	}
	for i, name := range want {
		if board[i].Name != name {
			t.Fatalf("rank %d = %q, want %q (board %+v)", i+1, board[i].Name, name, board)
		}
	}
}

func TestScoreNeverDecreases(t *testing.T) {
	r := New(0)
	r.Register("alice", newFakeConn("10.0.0.1"))
	r.ApplyCorrect("alice", 700)
	r.ApplyMiss("alice")
	r.ApplyMiss("alice")

	board := r.Scoreboard()
	if board[0].Points != 700 {
		t.Fatalf("score = %d, want 700", board[0].Points)
	}
	if board[0].Streak != 0 {
		t.Fatalf("streak = %d, want 0 after miss", board[0].Streak)
	}
}
