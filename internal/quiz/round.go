package quiz

import (
	"context"
	"log"
	"time"

	"quiznet/internal/domain"
	"quiznet/internal/protocol"
	"quiznet/internal/registry"
	"quiznet/internal/scoring"
)

// Phase is the observable state of a question round.
type Phase string

const (
	PhaseBroadcasting Phase = "broadcasting"
	PhaseCollecting   Phase = "collecting"
	PhaseResolving    Phase = "resolving"
	PhaseResults      Phase = "revealing results"
	PhaseLeaderboard  Phase = "revealing leaderboard"
	PhaseDone         Phase = "done"
)

// round plays a single question: broadcast, collect answers under the
// deadline, resolve scores, then reveal results and the leaderboard.
type round struct {
	reg      *registry.Registry
	question domain.Question
	cfg      Config
	now      func() time.Time
	skipped  func() bool
	phase    Phase
}

func newRound(reg *registry.Registry, q domain.Question, cfg Config, skipped func() bool) *round {
	return &round{
		reg:      reg,
		question: q,
		cfg:      cfg,
		now:      time.Now,
		skipped:  skipped,
		phase:    PhaseBroadcasting,
	}
}

func (r *round) setPhase(p Phase) { r.phase = p }

// run drives the round to completion. A round with no connected players
// finishes immediately without broadcasting anything.
func (r *round) run(ctx context.Context) {
	if r.reg.AliveCount() == 0 {
		log.Printf("skipping question %d, no connected players", r.question.ID)
		r.setPhase(PhaseDone)
		return
	}

	budget := r.question.Timeout

	r.setPhase(PhaseBroadcasting)
	r.reg.BeginRound()
	start := r.now()
	deadline := start.Add(budget)
	r.reg.Broadcast(protocol.Question{
		ID:      r.question.ID,
		Timeout: int(budget / time.Second),
		Text:    r.question.Text,
	}.Line())
	log.Printf("question %d: %s", r.question.ID, r.question.Text)

	r.setPhase(PhaseCollecting)
	r.collect(ctx, deadline)
	r.reg.EndCollection()

	r.setPhase(PhaseResolving)
	res := resolve(r.reg.SnapshotAlive(), r.question.Correct, start, budget)
	for _, c := range res.Correct {
		r.reg.ApplyCorrect(c.Name, c.Points)
		if c.Name == res.Winner {
			log.Printf("%s answered first: %s (in %.2fs)", c.Name, scoring.PointsMessage(c.Points), c.Elapsed.Seconds())
		} else {
			log.Printf("%s also correct: %s (in %.2fs)", c.Name, scoring.PointsMessage(c.Points), c.Elapsed.Seconds())
		}
	}
	for _, name := range res.Wrong {
		r.reg.ApplyMiss(name)
	}
	for _, name := range res.Unanswered {
		r.reg.ApplyMiss(name)
	}

	// A shutdown mid-question still settles scores, but the reveals are
	// pointless once the context is gone.
	if ctx.Err() != nil {
		r.setPhase(PhaseDone)
		return
	}

	r.setPhase(PhaseResults)
	r.reg.Broadcast(protocol.Show{Screen: protocol.ScreenResults}.Line())
	sleepCtx(ctx, r.cfg.ScreenDelay)
	r.reg.Broadcast(protocol.TimeUp{
		Correct: r.question.Correct,
		Winner:  res.Winner,
		Points:  res.WinnerPoints,
	}.Line())
	for _, c := range res.Correct {
		r.reg.SendTo(c.Name, protocol.Feedback{
			Name:    c.Name,
			Outcome: protocol.OutcomeCorrect,
			Points:  c.Points,
			Elapsed: c.Elapsed.Seconds(),
		}.Line())
	}
	for _, name := range res.Wrong {
		r.reg.SendTo(name, protocol.Feedback{Name: name, Outcome: protocol.OutcomeWrong}.Line())
	}
	for _, name := range res.Unanswered {
		r.reg.SendTo(name, protocol.Feedback{Name: name, Outcome: protocol.OutcomeTimeout}.Line())
	}
	sleepCtx(ctx, r.cfg.ResultsDwell)

	r.setPhase(PhaseLeaderboard)
	r.reg.Broadcast(protocol.Show{Screen: protocol.ScreenLeaderboard}.Line())
	sleepCtx(ctx, r.cfg.ScreenDelay)
	r.reg.Broadcast(protocol.Score{Entries: r.reg.Scoreboard()}.Line())
	sleepCtx(ctx, r.cfg.BoardDwell)

	log.Printf("question %d complete: %d correct, %d wrong, %d unanswered",
		r.question.ID, len(res.Correct), len(res.Wrong), len(res.Unanswered))
	r.setPhase(PhaseDone)
}

// collect polls until the deadline, an early-exit condition, or
// cancellation. Each tick reaps dead connections and re-broadcasts the
// remaining whole seconds when they change.
func (r *round) collect(ctx context.Context, deadline time.Time) {
	lastTimer := -1
	ticker := time.NewTicker(r.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := r.now()
		if !now.Before(deadline) {
			return
		}

		r.reg.ReapDead()

		if remaining := int(deadline.Sub(now) / time.Second); remaining >= 0 && remaining != lastTimer {
			r.reg.Broadcast(protocol.Timer{Remaining: remaining}.Line())
			lastTimer = remaining
		}

		if r.skipped() {
			log.Printf("host skipped question %d", r.question.ID)
			return
		}
		if r.reg.AliveCount() == 0 {
			log.Printf("all players disconnected during question %d", r.question.ID)
			return
		}
		if r.reg.AllAnswered() {
			log.Printf("all players answered question %d", r.question.ID)
			return
		}
	}
}

// correctAnswer is one scored correct response, in observation order.
type correctAnswer struct {
	Name    string
	Points  int
	Elapsed time.Duration
	seq     int
}

// roundResult classifies every player who was alive when collection closed.
type roundResult struct {
	Winner       string
	WinnerPoints int
	Correct      []correctAnswer
	Wrong        []string
	Unanswered   []string
}

// resolve classifies the round from recorded answers. Scoring uses each
// player's own answer timestamp; the winner is the earliest correct answer,
// with ties broken by which the engine observed first.
func resolve(players []registry.Player, correctOption string, start time.Time, budget time.Duration) roundResult {
	var res roundResult
	var winnerAt time.Time
	winnerSeq := 0

	for _, p := range players {
		switch {
		case !p.Answered():
			res.Unanswered = append(res.Unanswered, p.Name)
		case p.LastAnswer != correctOption:
			res.Wrong = append(res.Wrong, p.Name)
		default:
			elapsed := p.AnswerAt.Sub(start)
			points := scoring.TimeBonus(elapsed, budget)
			res.Correct = append(res.Correct, correctAnswer{
				Name:    p.Name,
				Points:  points,
				Elapsed: elapsed,
				seq:     p.AnswerSeq,
			})
			first := res.Winner == "" ||
				p.AnswerAt.Before(winnerAt) ||
				(p.AnswerAt.Equal(winnerAt) && p.AnswerSeq < winnerSeq)
			if first {
				res.Winner = p.Name
				res.WinnerPoints = points
				winnerAt = p.AnswerAt
				winnerSeq = p.AnswerSeq
			}
		}
	}
	return res
}
