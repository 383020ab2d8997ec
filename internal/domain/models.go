package domain

import "time"

// Question is one timed multiple-choice question. The correct option is a
// single letter from A to D. A zero Timeout means the host-configured
// default applies when the quiz starts.
type Question struct {
	ID      int           `json:"id"`
	Text    string        `json:"text"`
	Correct string        `json:"correct"`
	Timeout time.Duration `json:"timeout"`
}

// ScoreEntry is one ranked scoreboard row. Streak is the player's current
// run of correct answers; the wire scoreboard carries only name and points.
type ScoreEntry struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Streak int    `json:"streak"`
}

// Summary captures the end-of-quiz statistics shown on the host console.
type Summary struct {
	Entries         []ScoreEntry
	QuestionsPlayed int
	TotalPlayers    int
	AverageScore    float64
	HighestStreak   int
}
