package quiz

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"quiznet/internal/domain"
	"quiznet/internal/protocol"
	"quiznet/internal/registry"
)

// BankRepository loads question banks (from cache or backing store).
type BankRepository interface {
	GetBank(ctx context.Context, name string) ([]domain.Question, error)
}

// Director sequences one quiz session: lobby wait, host start signal,
// question rounds, and the final summary. Run may be called once.
type Director struct {
	reg   *registry.Registry
	banks BankRepository
	bank  string
	cfg   Config

	start chan time.Duration
	ready chan struct{}
	skip  atomic.Bool
}

func NewDirector(reg *registry.Registry, banks BankRepository, bank string, cfg Config) *Director {
	return &Director{
		reg:   reg,
		banks: banks,
		bank:  bank,
		cfg:   cfg,
		start: make(chan time.Duration, 1),
		ready: make(chan struct{}),
	}
}

// LobbyReady is closed once at least one player has joined, telling the
// host console it can prompt for the start command.
func (d *Director) LobbyReady() <-chan struct{} { return d.ready }

// Start begins the quiz with the given per-question timeout; non-positive
// keeps the configured default. Never blocks; repeated calls are dropped.
func (d *Director) Start(timeout time.Duration) {
	select {
	case d.start <- timeout:
	default:
	}
}

// Skip ends the current question's answer collection early.
func (d *Director) Skip() { d.skip.Store(true) }

// Run plays the whole session and returns the final summary. It refuses to
// start on an empty bank and returns the context error when cancelled
// before the quiz begins.
func (d *Director) Run(ctx context.Context) (domain.Summary, error) {
	questions, err := d.banks.GetBank(ctx, d.bank)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("load bank %q: %w", d.bank, err)
	}
	if len(questions) == 0 {
		return domain.Summary{}, domain.ErrNoQuestions
	}
	if d.cfg.MaxQuestions > 0 && len(questions) > d.cfg.MaxQuestions {
		questions = questions[:d.cfg.MaxQuestions]
	}
	log.Printf("loaded %d questions from bank %q", len(questions), d.bank)

	log.Printf("waiting for at least one player to join")
	d.reg.Broadcast(protocol.Announce{Text: protocol.LobbyText}.Line())
	if err := d.waitForPlayers(ctx); err != nil {
		return d.summary(0), err
	}
	close(d.ready)
	log.Printf("%d player(s) connected", d.reg.AliveCount())

	timeout := d.cfg.DefaultTimeout
	select {
	case <-ctx.Done():
		log.Printf("stopping before quiz start")
		return d.summary(0), ctx.Err()
	case t := <-d.start:
		if t > 0 {
			timeout = t
		}
	}
	log.Printf("question timeout set to %s", timeout)

	log.Printf("starting quiz")
	d.reg.Broadcast(protocol.Announce{Text: protocol.QuizStartText}.Line())
	sleepCtx(ctx, d.cfg.GetReady)

	played := 0
	for _, q := range questions {
		if ctx.Err() != nil {
			log.Printf("server shutdown requested, stopping quiz")
			d.reg.Broadcast(protocol.Announce{Text: protocol.ShutdownText}.Line())
			break
		}
		if d.reg.AliveCount() == 0 {
			log.Printf("all players left, stopping quiz")
			d.reg.Broadcast(protocol.Announce{Text: protocol.AllLeftText}.Line())
			break
		}

		if q.Timeout == 0 {
			q.Timeout = timeout
		}
		d.skip.Store(false)
		newRound(d.reg, q, d.cfg, d.skip.Load).run(ctx)
		played++

		if ctx.Err() != nil {
			log.Printf("server shutdown requested, stopping quiz")
			d.reg.Broadcast(protocol.Announce{Text: protocol.ShutdownText}.Line())
			break
		}
		if d.reg.AliveCount() == 0 {
			log.Printf("all players left, stopping quiz")
			break
		}
		sleepCtx(ctx, d.cfg.BetweenRounds)
	}

	if d.reg.AliveCount() > 0 {
		log.Printf("quiz complete")
		d.reg.Broadcast(protocol.Announce{Text: protocol.QuizEndText}.Line())
		sleepCtx(ctx, d.cfg.FinalPause)
		d.reg.Broadcast(protocol.Score{Entries: d.reg.Scoreboard()}.Line())
	} else {
		log.Printf("quiz terminated, no players remaining")
	}

	return d.summary(played), nil
}

// waitForPlayers polls until somebody is in the lobby, reconciling silently
// dropped connections each tick so a ghost never counts as a player.
func (d *Director) waitForPlayers(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.LobbyPoll)
	defer ticker.Stop()
	for {
		d.reg.ReapDead()
		if d.reg.AliveCount() > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Director) summary(played int) domain.Summary {
	entries := d.reg.Scoreboard()
	s := domain.Summary{
		Entries:         entries,
		QuestionsPlayed: played,
		TotalPlayers:    len(entries),
	}
	if len(entries) == 0 {
		return s
	}
	total := 0
	for _, e := range entries {
		total += e.Points
		if e.Streak > s.HighestStreak {
			s.HighestStreak = e.Streak
		}
	}
	s.AverageScore = float64(total) / float64(len(entries))
	return s
}
