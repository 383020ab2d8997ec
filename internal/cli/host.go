package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"quiznet/internal/domain"
	"quiznet/internal/quiz"
	"quiznet/internal/registry"
)

// runHostConsole drives the operator side of the quiz on stdin: pick the
// per-question timeout, start the quiz, skip questions, or stop the server.
// EOF on stdin counts as a stop command.
func runHostConsole(ctx context.Context, cancel context.CancelFunc, d *quiz.Director, reg *registry.Registry, defaultTimeout time.Duration) {
	lines := readLines(os.Stdin)

	select {
	case <-ctx.Done():
		return
	case <-d.LobbyReady():
	}

	fmt.Printf("\n%d player(s) connected:\n", reg.AliveCount())
	for _, p := range reg.SnapshotAlive() {
		fmt.Printf("  %s\n", p.Name)
	}
	fmt.Println()

	timeout, ok := promptTimeout(ctx, lines, defaultTimeout)
	if !ok {
		stopFromConsole(ctx, cancel)
		return
	}
	fmt.Printf("Question timeout set to %d seconds.\n", int(timeout/time.Second))
	fmt.Println("Type 'start' (or press Enter) to begin the quiz.")
	fmt.Println("Or type 'quit' / 'exit' / 'stop' to cancel.")

	for {
		fmt.Print("> ")
		line, ok := nextLine(ctx, lines)
		if !ok {
			stopFromConsole(ctx, cancel)
			return
		}
		cmd := strings.ToLower(strings.TrimSpace(line))
		if cmd == "" || cmd == "start" {
			break
		}
		if isQuitCommand(cmd) {
			fmt.Println("Stop command received. No quiz will be started.")
			cancel()
			return
		}
		fmt.Println("Unknown command. Type 'start' or press Enter to begin, 'quit' to stop.")
	}

	d.Start(timeout)
	fmt.Println("Quiz started. Type 'skip' to end a question early, 'quit' to stop the server.")

	for {
		line, ok := nextLine(ctx, lines)
		if !ok {
			stopFromConsole(ctx, cancel)
			return
		}
		switch cmd := strings.ToLower(strings.TrimSpace(line)); {
		case cmd == "skip":
			d.Skip()
			fmt.Println("Skipping to next question...")
		case isQuitCommand(cmd):
			fmt.Println("Shutdown requested.")
			cancel()
			return
		}
	}
}

func isQuitCommand(cmd string) bool {
	switch cmd {
	case "q", "quit", "exit", "stop":
		return true
	}
	return false
}

// stopFromConsole cancels the server unless it is already stopping (a closed
// stdin after cancellation is not an operator command).
func stopFromConsole(ctx context.Context, cancel context.CancelFunc) {
	if ctx.Err() == nil {
		fmt.Println("Stop command received.")
		cancel()
	}
}

func promptTimeout(ctx context.Context, lines <-chan string, defaultTimeout time.Duration) (time.Duration, bool) {
	for {
		fmt.Printf("Enter question timeout in seconds (default %d): ", int(defaultTimeout/time.Second))
		line, ok := nextLine(ctx, lines)
		if !ok {
			return 0, false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultTimeout, true
		}
		seconds, err := strconv.Atoi(line)
		if err != nil {
			fmt.Println("Invalid input. Please enter a number.")
			continue
		}
		if seconds <= 0 {
			fmt.Println("Please enter a positive number.")
			continue
		}
		return time.Duration(seconds) * time.Second, true
	}
}

func nextLine(ctx context.Context, lines <-chan string) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-lines:
		return line, ok
	}
}

// readLines pumps reader lines into a channel so prompts can also watch ctx.
// The pump exits on EOF; one blocked on a final unread line dies with the
// process.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// printSummary renders the final podium and statistics on the host console.
func printSummary(w io.Writer, s domain.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Final leaderboard:")
	if len(s.Entries) == 0 {
		fmt.Fprintln(w, "  No scores recorded.")
		return
	}
	for i, e := range s.Entries {
		switch i {
		case 0:
			fmt.Fprintf(w, "  1st: %s - %d pts (streak: %d)\n", e.Name, e.Points, e.Streak)
		case 1:
			fmt.Fprintf(w, "  2nd: %s - %d pts (streak: %d)\n", e.Name, e.Points, e.Streak)
		case 2:
			fmt.Fprintf(w, "  3rd: %s - %d pts (streak: %d)\n", e.Name, e.Points, e.Streak)
		default:
			fmt.Fprintf(w, "  %d. %s - %d pts (streak: %d)\n", i+1, e.Name, e.Points, e.Streak)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Statistics:")
	fmt.Fprintf(w, "  Total players: %d\n", s.TotalPlayers)
	fmt.Fprintf(w, "  Average score: %.1f pts\n", s.AverageScore)
	fmt.Fprintf(w, "  Highest streak: %d\n", s.HighestStreak)
	fmt.Fprintf(w, "  Questions played: %d\n", s.QuestionsPlayed)
}
