package app_test

import (
	"context"
	"testing"
	"time"

	"class-quiz-service/internal/app"
	"class-quiz-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finished(id string, score int, totalTimeMs int64) domain.Participant {
	at := testStart.Add(time.Hour)
	return domain.Participant{ID: id, ClassID: "c1", Name: id, Score: &score, TotalTimeMs: &totalTimeMs, FinishedAt: &at}
}

func ids(standings []domain.Standing) []string {
	out := make([]string, len(standings))
	for i, s := range standings {
		out[i] = s.Participant.ID
	}
	return out
}

func TestRankParticipantsOrder(t *testing.T) {
	participants := []domain.Participant{
		finished("A", 8, 50000),
		finished("B", 8, 40000),
		{ID: "U", ClassID: "c1", Name: "unfinished"},
		finished("C", 9, 99999),
	}

	standings := app.RankParticipants(participants, 10)
	require.Len(t, standings, 3)
	assert.Equal(t, []string{"C", "B", "A"}, ids(standings))
	for i, s := range standings {
		assert.Equal(t, i+1, s.Rank)
	}
	assert.Equal(t, 90, standings[0].Percentage)
	assert.Equal(t, int64(40000), standings[1].TotalTimeMs)
}

func TestRankParticipantsFullTieKeepsJoinOrder(t *testing.T) {
	participants := []domain.Participant{
		finished("first", 5, 1000),
		finished("second", 5, 1000),
		finished("third", 5, 1000),
	}
	for i := 0; i < 5; i++ {
		standings := app.RankParticipants(participants, 5)
		assert.Equal(t, []string{"first", "second", "third"}, ids(standings))
		assert.Equal(t, []int{1, 2, 3}, []int{standings[0].Rank, standings[1].Rank, standings[2].Rank})
	}
}

func TestAggregate(t *testing.T) {
	class := domain.Class{ID: "c1", MaxMembers: 40}
	participants := []domain.Participant{
		finished("a", 10, 1),
		finished("b", 8, 1),
		{ID: "pending", ClassID: "c1"},
		finished("c", 6, 1),
	}

	agg := app.Aggregate(class, participants, 10)
	assert.Equal(t, 8.0, agg.AverageScore)
	assert.Equal(t, 8, agg.CompletionRate)
	assert.Equal(t, 3, agg.FinishedCount)
	assert.Equal(t, 4, agg.JoinedCount)

	agg = app.Aggregate(class, participants[2:3], 10)
	assert.Equal(t, 0.0, agg.AverageScore)
	assert.Equal(t, 0, agg.CompletionRate)

	agg = app.Aggregate(domain.Class{MaxMembers: 0}, participants, 10)
	assert.Equal(t, 0, agg.CompletionRate, "a misconfigured class must not divide by zero")

	agg = app.Aggregate(domain.Class{MaxMembers: 3}, []domain.Participant{finished("x", 2, 1), finished("y", 1, 1), finished("z", 2, 1)}, 3)
	assert.Equal(t, 1.67, agg.AverageScore)
	assert.Equal(t, 100, agg.CompletionRate)
}

func TestRankingsAndReviewFromStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedThree(t)

	s, err := f.service.StartSession(ctx, "token-p1")
	require.NoError(t, err)
	require.NoError(t, s.Begin(ctx))
	f.clock.Add(time.Second)
	_, err = s.Submit(ctx, intp(1)) // q2 correct
	require.NoError(t, err)
	f.clock.Add(time.Second)
	_, err = s.Submit(ctx, intp(2)) // q1 wrong
	require.NoError(t, err)
	f.clock.Add(domain.QuestionDuration) // q3 expires
	require.True(t, s.IsComplete())

	require.NoError(t, f.store.CreateParticipant(ctx, domain.Participant{ID: "p2", ClassID: "c1", Token: "t2", QuestionSequence: []string{"q1", "q2", "q3"}}))

	standings, err := f.service.Rankings(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.Equal(t, "p1", standings[0].Participant.ID)
	assert.Equal(t, 33, standings[0].Percentage)

	agg, err := f.service.Aggregates(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, agg.AverageScore)
	assert.Equal(t, 3, agg.CompletionRate)
	assert.Equal(t, 2, agg.JoinedCount)

	review, err := f.service.Review(ctx, "c1", "p1")
	require.NoError(t, err)
	require.Len(t, review.Items, 3)
	assert.Equal(t, []domain.Outcome{domain.OutcomeCorrect, domain.OutcomeIncorrect, domain.OutcomeExpired},
		[]domain.Outcome{review.Items[0].Outcome, review.Items[1].Outcome, review.Items[2].Outcome})
	assert.Equal(t, "q2", review.Items[0].Question.ID)
	assert.Nil(t, review.Items[2].Answer.SelectedIndex)
	assert.NotNil(t, review.Items[1].Answer.SelectedIndex)

	_, err = f.service.Review(ctx, "c1", "p2")
	assert.True(t, domain.IsNotFound(err), "unfinished participants have no review")
	_, err = f.service.Review(ctx, "other-class", "p1")
	assert.True(t, domain.IsNotFound(err))
}

func TestAggregatesToleratesChangedCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.CreateClass(ctx, domain.Class{ID: "c2", Code: "SHRUNK", MaxMembers: 1}))
	for _, p := range []domain.Participant{finished("a", 1, 10), finished("b", 0, 20)} {
		p.ClassID = "c2"
		require.NoError(t, f.store.CreateParticipant(ctx, p))
	}

	agg, err := f.service.Aggregates(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 200, agg.CompletionRate)
	assert.Equal(t, 0.5, agg.AverageScore)

	_, err = f.service.Aggregates(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrClassNotFound)
}

func TestRankingsUnknownClass(t *testing.T) {
	f := newFixture(t)
	f.seedThree(t)

	standings, err := f.service.Rankings(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrClassNotFound)
	assert.True(t, domain.IsNotFound(err))
	assert.Nil(t, standings)
}
