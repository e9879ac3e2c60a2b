package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

const defaultLoadTimeout = 2 * time.Minute

// QuizCache caches generated question sets per theme with TTL to avoid repeated
// calls to a slow or expensive source.
type QuizCache struct {
	source      app.QuizSource
	ttl         time.Duration
	loadTimeout time.Duration
	clock       func() time.Time
	sf          singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuizCache(source app.QuizSource, ttl time.Duration) *QuizCache {
	return &QuizCache{
		source:      source,
		ttl:         ttl,
		loadTimeout: defaultLoadTimeout,
		clock:       time.Now,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:       make(map[string]cachedQuiz),
	}
}

// Generate returns the cached set for theme in a fresh order, loading it on a miss.
// Concurrent misses share one load; a caller giving up does not cancel it for the others.
func (c *QuizCache) Generate(ctx context.Context, theme string) ([]domain.Question, error) {
	if questions, ok := c.lookup(theme); ok {
		return c.shuffled(questions), nil
	}

	ch := c.sf.DoChan(theme, func() (interface{}, error) {
		if questions, ok := c.lookup(theme); ok {
			return questions, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		questions, err := c.source.Generate(loadCtx, theme)
		if err != nil {
			return nil, err
		}

		expiresAt := c.clock().Add(c.ttlWithJitter())
		c.mu.Lock()
		c.cache[theme] = cachedQuiz{questions: questions, expiresAt: expiresAt}
		c.mu.Unlock()
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
func (c *QuizCache) Invalidate(theme string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, theme)
}

func (c *QuizCache) lookup(theme string) ([]domain.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[theme]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return entry.questions, true
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
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
