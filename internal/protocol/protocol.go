// Package protocol implements the newline-delimited text protocol spoken by
// quiz clients. Every message is one line of the form tag:field:field:...;
// the exact wire text matters for compatibility with existing clients.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"quiznet/internal/domain"
)

// Message is a single protocol line, inbound or outbound.
type Message interface {
	// Line renders the exact wire text, without a line terminator.
	Line() string
}

// Outcome classifies a player's result for one question.
type Outcome string

const (
	OutcomeCorrect Outcome = "correct"
	OutcomeWrong   Outcome = "wrong"
	OutcomeTimeout Outcome = "timeout"
)

// Screen names a client screen switched to by a show: line.
type Screen string

const (
	ScreenResults     Screen = "results"
	ScreenLeaderboard Screen = "leaderboard"
)

// Announcement texts broadcast during the quiz lifecycle.
const (
	LobbyText     = "LOBBY Waiting for players..."
	QuizStartText = "QUIZ_START Get ready!"
	QuizEndText   = "QUIZ_END Great game everyone!"
	AllLeftText   = "All players left. Quiz ended."
	ShutdownText  = "Server shutting down. Quiz ended."
)

// Error codes sent on rejected joins.
const (
	CodeNameTaken   = "username_taken"
	CodeOriginTaken = "duplicate_origin"
	CodeLobbyFull   = "lobby_full"
	CodeRejected    = "rejected"
)

// Join is the first message of every connection.
type Join struct {
	Name string
}

func (j Join) Line() string { return "join:" + j.Name }

// Answer carries a player's option letter for the current question.
type Answer struct {
	Option string
}

func (a Answer) Line() string { return "answer:" + a.Option }

// Question announces a new question with its time budget in seconds.
type Question struct {
	ID      int
	Timeout int
	Text    string
}

func (q Question) Line() string {
	return fmt.Sprintf("question:%d:%d:%s", q.ID, q.Timeout, q.Text)
}

// Timer carries the remaining whole seconds of the current question.
type Timer struct {
	Remaining int
}

func (t Timer) Line() string { return "timer:" + strconv.Itoa(t.Remaining) }

// Announce is a free-text broadcast line.
type Announce struct {
	Text string
}

func (a Announce) Line() string { return "broadcast:" + a.Text }

// TimeUp announces the end of a question round. An empty Winner renders the
// no-winner form, which carries no Points field.
type TimeUp struct {
	Correct string
	Winner  string
	Points  int
}

func (t TimeUp) Line() string {
	if t.Winner == "" {
		return fmt.Sprintf("broadcast:TIMEUP Correct=%s Winner=None", t.Correct)
	}
	return fmt.Sprintf("broadcast:TIMEUP Correct=%s Winner=%s Points=%d", t.Correct, t.Winner, t.Points)
}

// Show tells clients which screen to render next.
type Show struct {
	Screen Screen
}

func (s Show) Line() string { return "show:" + string(s.Screen) }

// Feedback is the individualized per-question result sent to one player.
// Elapsed is rendered with one decimal for correct answers and as a bare 0
// otherwise, matching what clients parse.
type Feedback struct {
	Name    string
	Outcome Outcome
	Points  int
	Elapsed float64
}

func (f Feedback) Line() string {
	if f.Outcome == OutcomeCorrect {
		return fmt.Sprintf("feedback:%s:correct:%d:%.1f", f.Name, f.Points, f.Elapsed)
	}
	return fmt.Sprintf("feedback:%s:%s:0:0", f.Name, f.Outcome)
}

// Score is the ranked scoreboard. Entries are assumed already ordered by
// points descending; an empty board renders the EMPTY sentinel row.
type Score struct {
	Entries []domain.ScoreEntry
}

func (s Score) Line() string {
	if len(s.Entries) == 0 {
		return "score:EMPTY:0"
	}
	var b strings.Builder
	b.WriteString("score:")
	for i, e := range s.Entries {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(e.Name)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(e.Points))
	}
	return b.String()
}

// ErrorMsg reports a rejected join to the offending client.
type ErrorMsg struct {
	Code string
}

func (e ErrorMsg) Line() string { return "error:" + e.Code }

// ErrorCode maps a join-rejection error to its stable wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNameTaken):
		return CodeNameTaken
	case errors.Is(err, domain.ErrOriginTaken):
		return CodeOriginTaken
	case errors.Is(err, domain.ErrLobbyFull):
		return CodeLobbyFull
	default:
		return CodeRejected
	}
}

// Parse decodes one wire line into its message type. Unknown tags return
// domain.ErrUnknownMessage; malformed payloads return a descriptive error.
// Callers treat any error as a line to ignore.
func Parse(line string) (Message, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty line")
	}
	tag, rest, found := strings.Cut(line, ":")
	if !found {
		return nil, fmt.Errorf("no tag in line %q", line)
	}

	switch tag {
	case "join":
		return Join{Name: strings.TrimSpace(rest)}, nil
	case "answer":
		return Answer{Option: strings.ToUpper(strings.TrimSpace(rest))}, nil
	case "question":
		parts := strings.SplitN(rest, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed question line %q", line)
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("question id: %w", err)
		}
		timeout, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("question timeout: %w", err)
		}
		return Question{ID: id, Timeout: timeout, Text: parts[2]}, nil
	case "timer":
		remaining, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("timer value: %w", err)
		}
		return Timer{Remaining: remaining}, nil
	case "broadcast":
		if strings.HasPrefix(rest, "TIMEUP ") {
			return parseTimeUp(rest)
		}
		return Announce{Text: rest}, nil
	case "show":
		return Show{Screen: Screen(rest)}, nil
	case "feedback":
		parts := strings.SplitN(rest, ":", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("malformed feedback line %q", line)
		}
		points, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("feedback points: %w", err)
		}
		elapsed, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return nil, fmt.Errorf("feedback elapsed: %w", err)
		}
		return Feedback{Name: parts[0], Outcome: Outcome(parts[1]), Points: points, Elapsed: elapsed}, nil
	case "score":
		if rest == "EMPTY:0" {
			return Score{}, nil
		}
		var entries []domain.ScoreEntry
		for _, part := range strings.Split(rest, "|") {
			name, pts, ok := strings.Cut(part, ":")
			if !ok {
				return nil, fmt.Errorf("malformed score entry %q", part)
			}
			points, err := strconv.Atoi(pts)
			if err != nil {
				return nil, fmt.Errorf("score points: %w", err)
			}
			entries = append(entries, domain.ScoreEntry{Name: name, Points: points})
		}
		return Score{Entries: entries}, nil
	case "error":
		return ErrorMsg{Code: rest}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMessage, tag)
	}
}

func parseTimeUp(rest string) (Message, error) {
	msg := TimeUp{}
	for _, field := range strings.Fields(rest)[1:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "Correct":
			msg.Correct = value
		case "Winner":
			if value != "None" {
				msg.Winner = value
			}
		case "Points":
			points, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("timeup points: %w", err)
			}
			msg.Points = points
		}
	}
	if msg.Correct == "" {
		return nil, fmt.Errorf("malformed timeup line %q", rest)
	}
	return msg, nil
}
