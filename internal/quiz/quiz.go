// Package quiz contains the session engine: the per-question state machine,
// the director that sequences a whole quiz, and the gateway that feeds both
// from the network transports.
package quiz

import (
	"context"
	"time"
)

// Config holds the engine's timings and limits. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// DefaultTimeout is the per-question budget used when the host does not
	// pick one and the question itself carries none.
	DefaultTimeout time.Duration
	// MaxQuestions caps how many questions a session plays regardless of
	// bank size.
	MaxQuestions int
	// Tick is the poll interval of the collecting loop.
	Tick time.Duration
	// LobbyPoll is the poll interval while waiting for the first player.
	LobbyPoll time.Duration
	// ScreenDelay is the pause between a show: line and its payload,
	// giving clients time to switch screens.
	ScreenDelay time.Duration
	// ResultsDwell and BoardDwell keep each reveal on screen.
	ResultsDwell time.Duration
	BoardDwell   time.Duration
	// GetReady is the pause after the quiz-start announcement.
	GetReady time.Duration
	// BetweenRounds is the pause after one question's leaderboard before
	// the next question.
	BetweenRounds time.Duration
	// FinalPause is the pause between the quiz-end announcement and the
	// final scoreboard line.
	FinalPause time.Duration
}

// DefaultConfig returns the standard game pacing.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 15 * time.Second,
		MaxQuestions:   10,
		Tick:           50 * time.Millisecond,
		LobbyPoll:      500 * time.Millisecond,
		ScreenDelay:    300 * time.Millisecond,
		ResultsDwell:   3 * time.Second,
		BoardDwell:     3 * time.Second,
		GetReady:       2 * time.Second,
		BetweenRounds:  time.Second,
		FinalPause:     time.Second,
	}
}

// sleepCtx pauses for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
