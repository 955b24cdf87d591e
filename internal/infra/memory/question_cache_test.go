package memory

import (
	"context"
	"testing"
	"time"

	"class-quiz-service/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: NewStore()}
	_ = store.CreateQuestion(ctx, domain.Question{ID: "q1", ClassID: "c1", Options: []string{"a", "b"}})
	cache := NewQuestionCache(store, time.Minute)

	if _, err := cache.QuestionsByClass(ctx, "c1"); err != nil {
		t.Fatalf("questions: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected store once, got %d", store.calls)
	}

	if _, err := cache.QuestionsByClass(ctx, "c1"); err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected cache hit, store calls %d", store.calls)
	}
}

func TestQuestionCacheInvalidatesOnCreate(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: NewStore()}
	cache := NewQuestionCache(store, time.Minute)

	_ = cache.CreateQuestion(ctx, domain.Question{ID: "q1", ClassID: "c1", OrderIndex: 0})
	if qs, _ := cache.QuestionsByClass(ctx, "c1"); len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	_ = cache.CreateQuestion(ctx, domain.Question{ID: "q2", ClassID: "c1", OrderIndex: 1})
	if qs, _ := cache.QuestionsByClass(ctx, "c1"); len(qs) != 2 {
		t.Fatalf("expected fresh list with 2 questions, got %d", len(qs))
	}
	if store.calls != 2 {
		t.Fatalf("expected two store reads, got %d", store.calls)
	}
}

type countingStore struct {
	*Store
	calls int
}

func (s *countingStore) QuestionsByClass(ctx context.Context, classID string) ([]domain.Question, error) {
	s.calls++
	return s.Store.QuestionsByClass(ctx, classID)
}
