package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"class-quiz-service/internal/app"
	"class-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches class question lists with TTL to avoid repeated store hits.
// Every other Store call passes straight through.
type QuestionCache struct {
	app.Store
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(store app.Store, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		Store: store,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedQuestions),
	}
}

func (c *QuestionCache) QuestionsByClass(ctx context.Context, classID string) ([]domain.Question, error) {
	if qs, ok := c.lookup(classID); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(classID, func() (interface{}, error) {
		if qs, ok := c.lookup(classID); ok {
			return qs, nil
		}
		now := c.clock()
		qs, err := c.Store.QuestionsByClass(ctx, classID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[classID] = cachedQuestions{
			questions: qs,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

// CreateQuestion writes through and drops the cached list for the class.
func (c *QuestionCache) CreateQuestion(ctx context.Context, q domain.Question) error {
	if err := c.Store.CreateQuestion(ctx, q); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.cache, q.ClassID)
	c.mu.Unlock()
	return nil
}

func (c *QuestionCache) lookup(classID string) ([]domain.Question, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[classID]; ok && entry.expiresAt.After(now) {
		return cloneQuestions(entry.questions), true
	}
	return nil, false
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func cloneQuestions(qs []domain.Question) []domain.Question {
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		out[i] = copyQuestion(q)
	}
	return out
}
