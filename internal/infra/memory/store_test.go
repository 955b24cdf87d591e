package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"class-quiz-service/internal/domain"
)

func TestStoreFinishParticipantOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CreateParticipant(ctx, domain.Participant{ID: "p1", ClassID: "c1", Token: "tok", QuestionSequence: []string{"q1"}}); err != nil {
		t.Fatalf("create participant: %v", err)
	}

	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	p, err := store.FinishParticipant(ctx, "p1", 1, 1200, first)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !p.Finished() || *p.Score != 1 {
		t.Fatalf("expected finished participant with score 1, got %+v", p)
	}

	p, err = store.FinishParticipant(ctx, "p1", 0, 99, first.Add(time.Hour))
	if err != nil {
		t.Fatalf("finish again: %v", err)
	}
	if *p.Score != 1 || *p.TotalTimeMs != 1200 || !p.FinishedAt.Equal(first) {
		t.Fatalf("expected first completion to stick, got %+v", p)
	}

	if _, err := store.FinishParticipant(ctx, "missing", 0, 0, first); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreRejectsDuplicateAnswer(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	a := domain.Answer{ID: "a1", ParticipantID: "p1", QuestionID: "q1"}
	if err := store.CreateAnswer(ctx, a); err != nil {
		t.Fatalf("create answer: %v", err)
	}
	a.ID = "a2"
	if err := store.CreateAnswer(ctx, a); !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected duplicate answer error, got %v", err)
	}
}

func TestStoreQueries(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.CreateClass(ctx, domain.Class{ID: "c1", Code: "ABC123", CreatorID: "teacher"})
	_ = store.CreateQuestion(ctx, domain.Question{ID: "q2", ClassID: "c1", OrderIndex: 1})
	_ = store.CreateQuestion(ctx, domain.Question{ID: "q1", ClassID: "c1", OrderIndex: 0})
	_ = store.CreateParticipant(ctx, domain.Participant{ID: "p1", ClassID: "c1", UserID: "u1", Token: "t1"})
	_ = store.CreateParticipant(ctx, domain.Participant{ID: "p2", ClassID: "c1", UserID: "u2", Token: "t2"})

	if c, err := store.ClassByCode(ctx, "ABC123"); err != nil || c.ID != "c1" {
		t.Fatalf("class by code: %+v %v", c, err)
	}
	if _, err := store.ClassByCode(ctx, "NOPE00"); !errors.Is(err, domain.ErrClassNotFound) {
		t.Fatalf("expected class not found, got %v", err)
	}
	qs, _ := store.QuestionsByClass(ctx, "c1")
	if len(qs) != 2 || qs[0].ID != "q1" || qs[1].ID != "q2" {
		t.Fatalf("expected questions ordered by orderIndex, got %+v", qs)
	}
	ps, _ := store.ParticipantsByClass(ctx, "c1")
	if len(ps) != 2 || ps[0].ID != "p1" || ps[1].ID != "p2" {
		t.Fatalf("expected join order, got %+v", ps)
	}
	if p, err := store.ParticipantByToken(ctx, "t2"); err != nil || p.ID != "p2" {
		t.Fatalf("participant by token: %+v %v", p, err)
	}
	if ps, _ := store.ParticipantsByUser(ctx, "u1"); len(ps) != 1 {
		t.Fatalf("expected one participation for u1, got %d", len(ps))
	}
	if cs, _ := store.ClassesByCreator(ctx, "teacher"); len(cs) != 1 {
		t.Fatalf("expected one class for creator, got %d", len(cs))
	}
}
