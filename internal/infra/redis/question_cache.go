package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"class-quiz-service/internal/app"
	"class-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches question reads in Redis and falls back to the wrapped store on a miss.
// Class lists are stored as: SET class:{classID}:questions <json array>
// Single questions as:       SET question:{questionID}     <json object>
// Questions are immutable, so only the class list needs invalidating on create.
type QuestionCache struct {
	app.Store
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, store app.Store, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		Store:  store,
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) QuestionsByClass(ctx context.Context, classID string) ([]domain.Question, error) {
	key := c.classKey(classID)
	var cached []domain.Question
	if c.read(ctx, key, &cached) {
		return cached, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		var qs []domain.Question
		if c.read(ctx, key, &qs) {
			return qs, nil
		}
		qs, err := c.Store.QuestionsByClass(ctx, classID)
		if err != nil {
			return nil, err
		}
		c.write(ctx, key, qs)
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) QuestionByID(ctx context.Context, id string) (domain.Question, error) {
	key := c.questionKey(id)
	var cached domain.Question
	if c.read(ctx, key, &cached) {
		return cached, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		q, err := c.Store.QuestionByID(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		c.write(ctx, key, q)
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

// CreateQuestion writes through and drops the cached class list.
func (c *QuestionCache) CreateQuestion(ctx context.Context, q domain.Question) error {
	if err := c.Store.CreateQuestion(ctx, q); err != nil {
		return err
	}
	if err := c.client.Del(ctx, c.classKey(q.ClassID)).Err(); err != nil {
		return fmt.Errorf("invalidate questions: %w", err)
	}
	return nil
}

// read reports a cache hit; errors other than a miss are treated as a miss too.
func (c *QuestionCache) read(ctx context.Context, key string, dst any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// write is best effort; the store stays the source of truth.
func (c *QuestionCache) write(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
}

func (c *QuestionCache) classKey(classID string) string {
	return "class:" + classID + ":questions"
}

func (c *QuestionCache) questionKey(questionID string) string {
	return "question:" + questionID
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
