package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

const defaultLoadTimeout = 2 * time.Minute

// QuizCache caches generated question sets in Redis and falls back to a source on miss.
// Sets are stored as JSON: SET {prefix}:quiz:{theme} [{question, options, answer}, ...]
type QuizCache struct {
	client      redis.UniversalClient
	source      app.QuizSource
	prefix      string
	ttl         time.Duration
	loadTimeout time.Duration
	sf          singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizCache(client redis.UniversalClient, source app.QuizSource, prefix string, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client:      client,
		source:      source,
		prefix:      prefix,
		ttl:         ttl,
		loadTimeout: defaultLoadTimeout,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate returns the cached set for theme in a fresh order. Concurrent misses share one
// load that runs detached from any single caller's cancellation.
func (c *QuizCache) Generate(ctx context.Context, theme string) ([]domain.Question, error) {
	if questions, ok := c.lookup(ctx, theme); ok {
		return c.shuffled(questions), nil
	}

	ch := c.sf.DoChan(theme, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.lookup(loadCtx, theme); ok {
			return questions, nil
		}

		questions, err := c.source.Generate(loadCtx, theme)
		if err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(questions); err == nil {
			_ = c.client.Set(loadCtx, c.key(theme), raw, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return c.shuffled(res.Val.([]domain.Question)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached set for theme.
func (c *QuizCache) Invalidate(ctx context.Context, theme string) error {
	return c.client.Del(ctx, c.key(theme)).Err()
}

func (c *QuizCache) lookup(ctx context.Context, theme string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, c.key(theme)).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

func (c *QuizCache) key(theme string) string {
	return c.prefix + ":quiz:" + theme
}

func (c *QuizCache) shuffled(questions []domain.Question) []domain.Question {
	out := append([]domain.Question(nil), questions...)
	c.mu.Lock()
	c.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	c.mu.Unlock()
	return out
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
