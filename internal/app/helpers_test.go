package app_test

import (
	"context"
	"io"
	"math/rand"
	"testing"
	"time"

	"class-quiz-service/internal/app"
	"class-quiz-service/internal/domain"
	"class-quiz-service/internal/infra/memory"
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testStart = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	registry *memory.SessionStore
	clock    *clock.Mock
	service  *app.QuizService
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	f := &fixture{
		store:    memory.NewStore(),
		registry: memory.NewSessionStore(),
		clock:    clock.NewMock(),
	}
	f.clock.Set(testStart)
	base := []app.Option{
		app.WithClock(f.clock),
		app.WithLogger(log),
		app.WithPasswordCost(bcrypt.MinCost),
		app.WithRand(rand.New(rand.NewSource(7))),
	}
	f.service = app.NewQuizService(f.store, f.registry, append(base, opts...)...)
	return f
}

// seedThree stores class c1 with questions q1..q3 (correct index 0, 1, 2) and
// a participant whose sequence is [q2, q1, q3].
func (f *fixture) seedThree(t *testing.T) domain.Participant {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.CreateClass(ctx, domain.Class{ID: "c1", Code: "ABC123", Name: "Science", MaxMembers: 40, CreatorID: "teacher"}))
	for i, id := range []string{"q1", "q2", "q3"} {
		require.NoError(t, f.store.CreateQuestion(ctx, domain.Question{
			ID:           id,
			ClassID:      "c1",
			Text:         "Question " + id,
			Options:      []string{"a", "b", "c"},
			CorrectIndex: i,
			OrderIndex:   i,
		}))
	}
	p := domain.Participant{
		ID:               "p1",
		ClassID:          "c1",
		Name:             "Alice",
		UserID:           "u1",
		JoinedAt:         testStart,
		QuestionSequence: []string{"q2", "q1", "q3"},
		Token:            "token-p1",
	}
	require.NoError(t, f.store.CreateParticipant(ctx, p))
	return p
}

func (f *fixture) answers(t *testing.T, participantID string) []domain.Answer {
	t.Helper()
	answers, err := f.store.AnswersByParticipant(context.Background(), participantID)
	require.NoError(t, err)
	return answers
}

func intp(v int) *int { return &v }
