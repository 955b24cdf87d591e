package memory

import (
	"context"
	"testing"

	"class-quiz-service/internal/app"
	"class-quiz-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	records := NewStore()
	_ = records.CreateParticipant(ctx, domain.Participant{ID: "p1", ClassID: "c1", Token: "tok"})
	registry := NewSessionStore()
	service := app.NewQuizService(records, registry)

	first, err := service.StartSession(ctx, "tok")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if got, ok := registry.Get("p1"); !ok || got != first {
		t.Fatalf("expected session registered")
	}

	second, err := service.StartSession(ctx, "tok")
	if err != nil {
		t.Fatalf("start second session: %v", err)
	}
	if got, _ := registry.Get("p1"); got != second {
		t.Fatalf("expected newest session to replace the old one")
	}

	registry.Detach(first)
	if registry.Len() != 1 {
		t.Fatalf("detaching a replaced session must keep the live one")
	}
	service.EndSession(second)
	if _, ok := registry.Get("p1"); ok {
		t.Fatalf("expected session removed")
	}
}
