package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiznet/internal/domain"
)

// BankLoader loads question banks from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, name string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT seq, text, correct, timeout_seconds FROM questions WHERE bank=$1 ORDER BY seq`,
		name)
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q       domain.Question
			seconds int
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Correct, &seconds); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Timeout = time.Duration(seconds) * time.Second
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrBankNotFound, name)
	}
	return questions, nil
}
