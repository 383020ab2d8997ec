package redis

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiznet/internal/domain"
)

// BankLoader fetches a named question bank from a backing store
// (e.g., Postgres or a flat file).
type BankLoader interface {
	LoadBank(ctx context.Context, name string) ([]domain.Question, error)
}

// BankRepository caches question banks in Redis and falls back to a loader on
// cache miss. Each bank is stored as three hashes keyed by question id:
//
//	HSET bank:{name}:text    {id} {text}
//	HSET bank:{name}:correct {id} {letter}
//	HSET bank:{name}:timeout {id} {seconds}
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, name string) ([]domain.Question, error) {
	if questions, ok := r.fromCache(ctx, name); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := r.fromCache(ctx, name); ok {
			return questions, nil
		}

		questions, err := r.loader.LoadBank(ctx, name)
		if err != nil {
			return nil, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for _, q := range questions {
			pipe.HSet(ctx, r.textKey(name), q.ID, q.Text)
			pipe.HSet(ctx, r.correctKey(name), q.ID, q.Correct)
			pipe.HSet(ctx, r.timeoutKey(name), q.ID, int(q.Timeout/time.Second))
		}
		if ttl > 0 {
			pipe.Expire(ctx, r.textKey(name), ttl)
			pipe.Expire(ctx, r.correctKey(name), ttl)
			pipe.Expire(ctx, r.timeoutKey(name), ttl)
		}
		_, _ = pipe.Exec(ctx)

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *BankRepository) fromCache(ctx context.Context, name string) ([]domain.Question, bool) {
	texts, err := r.client.HGetAll(ctx, r.textKey(name)).Result()
	if err != nil || len(texts) == 0 {
		return nil, false
	}
	correct, _ := r.client.HGetAll(ctx, r.correctKey(name)).Result()
	timeouts, _ := r.client.HGetAll(ctx, r.timeoutKey(name)).Result()
	return buildBankFromCache(texts, correct, timeouts), true
}

func (r *BankRepository) textKey(name string) string {
	return "bank:" + name + ":text"
}

func (r *BankRepository) correctKey(name string) string {
	return "bank:" + name + ":correct"
}

func (r *BankRepository) timeoutKey(name string) string {
	return "bank:" + name + ":timeout"
}

// buildBankFromCache reassembles questions from the three hashes. Hash order
// is arbitrary, so the result is sorted back into question order.
func buildBankFromCache(texts, correct, timeouts map[string]string) []domain.Question {
	questions := make([]domain.Question, 0, len(texts))
	for idStr, text := range texts {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		letter, ok := correct[idStr]
		if !ok {
			continue
		}
		q := domain.Question{ID: id, Text: text, Correct: letter}
		if sStr, ok := timeouts[idStr]; ok {
			if s, err := strconv.Atoi(sStr); err == nil && s > 0 {
				q.Timeout = time.Duration(s) * time.Second
			}
		}
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
