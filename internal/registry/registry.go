// Package registry keeps the authoritative table of quiz players. It is the
// single shared mutable domain of the engine: every mutation happens under
// one mutex, held only for in-memory work. Network writes always run against
// a snapshot taken under the lock, never under it.
package registry

import (
	"sort"
	"sync"
	"time"

	"quiznet/internal/domain"
	"quiznet/internal/transport"
)

// Player is one registered participant. Players are never removed mid-quiz;
// a disconnect only flips Alive so the score survives a rejoin under the
// same name.
type Player struct {
	Name       string
	Origin     string
	Alive      bool
	Score      int
	Streak     int
	LastAnswer string
	AnswerAt   time.Time
	AnswerSeq  int

	conn transport.Conn
}

// Answered reports whether the player has a recorded answer this round.
func (p Player) Answered() bool { return !p.AnswerAt.IsZero() }

// Registry tracks players across the whole quiz session.
type Registry struct {
	mu        sync.Mutex
	players   []*Player // insertion order, preserved for ranking ties
	byName    map[string]*Player
	capacity  int
	accepting bool
	answerSeq int
}

// New returns an empty registry. A capacity of zero means unbounded.
func New(capacity int) *Registry {
	return &Registry{
		byName:   make(map[string]*Player),
		capacity: capacity,
	}
}

// Register admits a player, atomically enforcing username uniqueness, one
// alive connection per origin, and the lobby capacity. A known but
// disconnected name is revived with its score and streak intact.
func (r *Registry) Register(name string, conn transport.Conn) error {
	origin := conn.Origin()

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.byName[name]; ok && p.Alive {
		return domain.ErrNameTaken
	}
	for _, p := range r.players {
		if p.Alive && p.Origin == origin {
			return domain.ErrOriginTaken
		}
	}
	if r.capacity > 0 && r.aliveLocked() >= r.capacity {
		return domain.ErrLobbyFull
	}

	if p, ok := r.byName[name]; ok {
		p.Alive = true
		p.Origin = origin
		p.conn = conn
		return nil
	}
	p := &Player{Name: name, Origin: origin, Alive: true, conn: conn}
	r.players = append(r.players, p)
	r.byName[name] = p
	return nil
}

// MarkDisconnected flips the player to dead. The record, score and streak
// stay so the player can rejoin.
func (r *Registry) MarkDisconnected(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byName[name]; ok {
		p.Alive = false
		p.conn = nil
	}
}

// ReapDead probes every alive connection and marks the unreachable ones
// dead. Probing happens outside the lock; a player who re-registered with a
// fresh connection in the meantime is left alone.
func (r *Registry) ReapDead() int {
	type target struct {
		name string
		conn transport.Conn
	}

	r.mu.Lock()
	targets := make([]target, 0, len(r.players))
	for _, p := range r.players {
		if p.Alive && p.conn != nil {
			targets = append(targets, target{p.Name, p.conn})
		}
	}
	r.mu.Unlock()

	var failed []target
	for _, t := range targets {
		if err := t.conn.Probe(); err != nil {
			failed = append(failed, t)
		}
	}
	if len(failed) == 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	reaped := 0
	for _, t := range failed {
		if p, ok := r.byName[t.name]; ok && p.Alive && p.conn == t.conn {
			p.Alive = false
			p.conn = nil
			reaped++
		}
	}
	return reaped
}

// SnapshotAlive returns point-in-time copies of every alive player, safe to
// iterate without the lock.
func (r *Registry) SnapshotAlive() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		if p.Alive {
			out = append(out, *p)
		}
	}
	return out
}

// AliveCount reports how many players are currently connected.
func (r *Registry) AliveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aliveLocked()
}

func (r *Registry) aliveLocked() int {
	n := 0
	for _, p := range r.players {
		if p.Alive {
			n++
		}
	}
	return n
}

// BeginRound clears every player's recorded answer and opens answer
// recording for a new question.
func (r *Registry) BeginRound() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		p.LastAnswer = ""
		p.AnswerAt = time.Time{}
		p.AnswerSeq = 0
	}
	r.answerSeq = 0
	r.accepting = true
}

// EndCollection closes answer recording. Answers racing the deadline are
// dropped once this returns.
func (r *Registry) EndCollection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepting = false
}

// RecordAnswer stores a player's answer for the current round. The first
// write wins; later answers, answers from unknown or dead players, and
// answers outside a collection window are ignored.
func (r *Registry) RecordAnswer(name, option string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.accepting {
		return false
	}
	p, ok := r.byName[name]
	if !ok || !p.Alive || !p.AnswerAt.IsZero() {
		return false
	}
	r.answerSeq++
	p.LastAnswer = option
	p.AnswerAt = at
	p.AnswerSeq = r.answerSeq
	return true
}

// AllAnswered reports whether every alive player has answered this round.
// It is false when nobody is alive, so an emptied lobby does not read as a
// completed round.
func (r *Registry) AllAnswered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	alive := 0
	for _, p := range r.players {
		if !p.Alive {
			continue
		}
		alive++
		if p.AnswerAt.IsZero() {
			return false
		}
	}
	return alive > 0
}

// ApplyCorrect credits points and extends the player's streak.
func (r *Registry) ApplyCorrect(name string, points int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byName[name]; ok {
		p.Score += points
		p.Streak++
	}
}

// ApplyMiss resets the player's streak after a wrong or missing answer.
func (r *Registry) ApplyMiss(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byName[name]; ok {
		p.Streak = 0
	}
}

// SendTo writes one line to a single alive player, best effort.
func (r *Registry) SendTo(name, line string) {
	r.mu.Lock()
	var conn transport.Conn
	if p, ok := r.byName[name]; ok && p.Alive {
		conn = p.conn
	}
	r.mu.Unlock()

	if conn != nil {
		_ = conn.WriteLine(line)
	}
}

// Broadcast writes one line to every alive player, best effort. Failed
// writes are left for the next liveness probe to notice.
func (r *Registry) Broadcast(line string) {
	r.mu.Lock()
	conns := make([]transport.Conn, 0, len(r.players))
	for _, p := range r.players {
		if p.Alive && p.conn != nil {
			conns = append(conns, p.conn)
		}
	}
	r.mu.Unlock()

	for _, conn := range conns {
		_ = conn.WriteLine(line)
	}
}

// Scoreboard returns every known player, connected or not, ranked by score
// descending. Ties keep registration order.
func (r *Registry) Scoreboard() []domain.ScoreEntry {
	r.mu.Lock()
	entries := make([]domain.ScoreEntry, 0, len(r.players))
	for _, p := range r.players {
		entries = append(entries, domain.ScoreEntry{Name: p.Name, Points: p.Score, Streak: p.Streak})
	}
	r.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	return entries
}
