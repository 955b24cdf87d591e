package app_test

import (
	"context"
	"io"
	"testing"
	"time"

	"class-quiz-service/internal/app"
	"class-quiz-service/internal/domain"
	"class-quiz-service/internal/infra/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompleter(t *testing.T, store *memory.Store, now *time.Time, strict bool) *app.Completer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return app.NewCompleter(store, func() time.Time { return *now }, log, nil, strict)
}

func threeAnswers() []domain.Answer {
	return []domain.Answer{
		{ID: "a1", ParticipantID: "p1", QuestionID: "q2", SelectedIndex: intp(1), IsCorrect: true, TimeTakenMs: 4000},
		{ID: "a2", ParticipantID: "p1", QuestionID: "q1", SelectedIndex: intp(2), IsCorrect: false, TimeTakenMs: 6000},
		{ID: "a3", ParticipantID: "p1", QuestionID: "q3", IsCorrect: false, TimeTakenMs: 30000},
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seedThree(t)
	now := testStart.Add(time.Minute)
	c := newCompleter(t, f.store, &now, false)

	first, err := c.Complete(ctx, p, threeAnswers())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Score)
	assert.Equal(t, int64(40000), first.TotalTimeMs)
	assert.Equal(t, now, first.FinishedAt)

	// a stale copy of the participant still hits the stored completion
	now = now.Add(time.Hour)
	second, err := c.Complete(ctx, p, threeAnswers())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := f.store.ParticipantByID(ctx, "p1")
	require.NoError(t, err)
	third, err := c.Complete(ctx, stored, nil)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestCompleteRejectsPartialAnswerSet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seedThree(t)
	now := testStart
	c := newCompleter(t, f.store, &now, false)

	cases := map[string][]domain.Answer{
		"missing":   threeAnswers()[:2],
		"duplicate": append(threeAnswers()[:2], domain.Answer{QuestionID: "q2"}),
		"stray":     append(threeAnswers()[:2], domain.Answer{QuestionID: "q9"}),
	}
	for name, answers := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Complete(ctx, p, answers)
			assert.ErrorIs(t, err, domain.ErrInvariantViolation)
		})
	}

	stored, err := f.store.ParticipantByID(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, stored.Finished(), "an inconsistent answer set must not be scored")
}

func TestCompleteStrictModePanics(t *testing.T) {
	f := newFixture(t)
	p := f.seedThree(t)
	now := testStart
	c := newCompleter(t, f.store, &now, true)

	assert.Panics(t, func() {
		_, _ = c.Complete(context.Background(), p, threeAnswers()[:1])
	})
}

func TestTallyAndPercent(t *testing.T) {
	score, total := app.Tally(threeAnswers())
	assert.Equal(t, 1, score)
	assert.Equal(t, int64(40000), total)

	assert.Equal(t, 33, app.Percent(1, 3))
	assert.Equal(t, 67, app.Percent(2, 3))
	assert.Equal(t, 100, app.Percent(10, 10))
	assert.Equal(t, 0, app.Percent(3, 0))
}
