package memory

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"quiznet/internal/domain"
)

// BankLoader fetches a named question bank from a backing store
// (e.g., Postgres or a flat file).
type BankLoader interface {
	LoadBank(ctx context.Context, name string) ([]domain.Question, error)
}

// StaticBankLoader serves banks from an in-memory map (useful for tests/demos).
type StaticBankLoader struct {
	banks map[string][]domain.Question
}

func NewStaticBankLoader(banks map[string][]domain.Question) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, name string) ([]domain.Question, error) {
	if questions, ok := l.banks[name]; ok {
		return questions, nil
	}
	return nil, domain.ErrBankNotFound
}

// FileBankLoader reads questions from a plain-text file, one per line:
//
//	<question text>|<correct option letter>
//
// Blank lines and lines starting with # are skipped. Malformed rows are
// logged and dropped rather than failing the load. IDs are assigned in file
// order starting at 1. The file is a single bank; the requested name is
// ignored.
type FileBankLoader struct {
	path string
}

func NewFileBankLoader(path string) *FileBankLoader {
	return &FileBankLoader{path: path}
}

func (l *FileBankLoader) LoadBank(_ context.Context, _ string) ([]domain.Question, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBankNotFound, l.path)
		}
		return nil, fmt.Errorf("open question file: %w", err)
	}
	defer f.Close()

	var questions []domain.Question
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) != 2 {
			log.Printf("skipping invalid question line: %s", line)
			continue
		}
		correct := strings.ToUpper(strings.TrimSpace(parts[1]))
		if !validOption(correct) {
			log.Printf("skipping question with invalid option %q: %s", correct, line)
			continue
		}
		questions = append(questions, domain.Question{
			ID:      len(questions) + 1,
			Text:    strings.TrimSpace(parts[0]),
			Correct: correct,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	return questions, nil
}

func validOption(s string) bool {
	switch s {
	case "A", "B", "C", "D":
		return true
	}
	return false
}
