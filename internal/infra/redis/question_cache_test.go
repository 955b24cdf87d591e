package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"class-quiz-service/internal/domain"
	"class-quiz-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := &countingStore{Store: memory.NewStore()}
	_ = store.CreateQuestion(ctx, sampleQuestion())
	cache := NewQuestionCache(newClient(mr), store, time.Minute)

	qs, err := cache.QuestionsByClass(ctx, "class-1")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 1 || qs[0].CorrectIndex != 1 {
		t.Fatalf("unexpected questions %+v", qs)
	}
	if store.listCalls != 1 {
		t.Fatalf("expected store called once, got %d", store.listCalls)
	}
	if !mr.Exists("class:class-1:questions") {
		t.Fatalf("expected class list cached in redis")
	}

	// Second call should hit cache, store not incremented.
	_, _ = cache.QuestionsByClass(ctx, "class-1")
	if store.listCalls != 1 {
		t.Fatalf("expected cache hit, store calls=%d", store.listCalls)
	}

	q, err := cache.QuestionByID(ctx, "q1")
	if err != nil || q.Text != "What is 2 + 2?" {
		t.Fatalf("question by id: %+v %v", q, err)
	}
	_, _ = cache.QuestionByID(ctx, "q1")
	if store.getCalls != 1 {
		t.Fatalf("expected single store read for question, got %d", store.getCalls)
	}
}

func TestQuestionCacheInvalidatesClassList(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	cache := NewQuestionCache(newClient(mr), memory.NewStore(), time.Minute)
	_ = cache.CreateQuestion(ctx, sampleQuestion())
	_, _ = cache.QuestionsByClass(ctx, "class-1")

	second := sampleQuestion()
	second.ID, second.OrderIndex = "q2", 1
	if err := cache.CreateQuestion(ctx, second); err != nil {
		t.Fatalf("create question: %v", err)
	}
	if mr.Exists("class:class-1:questions") {
		t.Fatalf("expected class list evicted")
	}
	qs, _ := cache.QuestionsByClass(ctx, "class-1")
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions after invalidation, got %d", len(qs))
	}
}

func TestQuestionCacheMissingQuestion(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewQuestionCache(newClient(mr), memory.NewStore(), time.Minute)
	if _, err := cache.QuestionByID(context.Background(), "nope"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

type countingStore struct {
	*memory.Store
	listCalls int
	getCalls  int
}

func (s *countingStore) QuestionsByClass(ctx context.Context, classID string) ([]domain.Question, error) {
	s.listCalls++
	return s.Store.QuestionsByClass(ctx, classID)
}

func (s *countingStore) QuestionByID(ctx context.Context, id string) (domain.Question, error) {
	s.getCalls++
	return s.Store.QuestionByID(ctx, id)
}

func sampleQuestion() domain.Question {
	return domain.Question{
		ID:           "q1",
		ClassID:      "class-1",
		Text:         "What is 2 + 2?",
		Options:      []string{"3", "4", "5"},
		CorrectIndex: 1,
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
