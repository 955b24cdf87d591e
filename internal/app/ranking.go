package app

import (
	"context"
	"fmt"
	"math"
	"sort"

	"class-quiz-service/internal/domain"
)

// Ranker derives standings and statistics from the store on every call.
type Ranker struct {
	store Store
}

func NewRanker(store Store) *Ranker {
	return &Ranker{store: store}
}

// Rankings orders the finished participants of a class.
func (r *Ranker) Rankings(ctx context.Context, classID string) ([]domain.Standing, error) {
	if _, err := r.store.ClassByID(ctx, classID); err != nil {
		return nil, err
	}
	participants, questions, err := r.load(ctx, classID)
	if err != nil {
		return nil, err
	}
	return RankParticipants(participants, questions), nil
}

// Aggregates computes the class average and completion rate.
func (r *Ranker) Aggregates(ctx context.Context, classID string) (domain.Aggregates, error) {
	class, err := r.store.ClassByID(ctx, classID)
	if err != nil {
		return domain.Aggregates{}, err
	}
	participants, questions, err := r.load(ctx, classID)
	if err != nil {
		return domain.Aggregates{}, err
	}
	return Aggregate(class, participants, questions), nil
}

// Review rebuilds the per-question outcome of a finished participant.
func (r *Ranker) Review(ctx context.Context, classID, participantID string) (domain.Review, error) {
	participant, err := r.store.ParticipantByID(ctx, participantID)
	if err != nil {
		return domain.Review{}, err
	}
	if participant.ClassID != classID || !participant.Finished() {
		return domain.Review{}, domain.ErrParticipantNotFound
	}
	answers, err := r.store.AnswersByParticipant(ctx, participant.ID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("load answers: %w", err)
	}
	byQuestion := make(map[string]domain.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	review := domain.Review{
		Participant: participant,
		Result:      ResultOf(participant),
		Items:       make([]domain.ReviewItem, 0, len(participant.QuestionSequence)),
	}
	for i, questionID := range participant.QuestionSequence {
		answer, ok := byQuestion[questionID]
		if !ok {
			continue
		}
		question, err := r.store.QuestionByID(ctx, questionID)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return domain.Review{}, err
		}
		review.Items = append(review.Items, domain.ReviewItem{
			Index:    i,
			Question: question,
			Answer:   answer,
			Outcome:  domain.OutcomeOf(answer),
		})
	}
	return review, nil
}

func (r *Ranker) load(ctx context.Context, classID string) ([]domain.Participant, int, error) {
	participants, err := r.store.ParticipantsByClass(ctx, classID)
	if err != nil {
		return nil, 0, fmt.Errorf("load participants: %w", err)
	}
	questions, err := r.store.QuestionsByClass(ctx, classID)
	if err != nil {
		return nil, 0, fmt.Errorf("load questions: %w", err)
	}
	return participants, len(questions), nil
}

// RankParticipants sorts finished participants by score desc, then total time
// asc; equal keys keep their input order. Ranks are list positions.
func RankParticipants(participants []domain.Participant, questionCount int) []domain.Standing {
	finished := finishedOnly(participants)
	sort.SliceStable(finished, func(i, j int) bool {
		si, sj := *finished[i].Score, *finished[j].Score
		if si != sj {
			return si > sj
		}
		return totalTime(finished[i]) < totalTime(finished[j])
	})

	standings := make([]domain.Standing, 0, len(finished))
	for i, p := range finished {
		standings = append(standings, domain.Standing{
			Rank:        i + 1,
			Participant: p,
			Score:       *p.Score,
			Percentage:  Percent(*p.Score, questionCount),
			TotalTimeMs: totalTime(p),
		})
	}
	return standings
}

// Aggregate computes class statistics. A non-positive maxMembers yields a 0% completion rate.
func Aggregate(class domain.Class, participants []domain.Participant, questionCount int) domain.Aggregates {
	finished := finishedOnly(participants)
	agg := domain.Aggregates{
		FinishedCount: len(finished),
		JoinedCount:   len(participants),
		QuestionCount: questionCount,
		MaxMembers:    class.MaxMembers,
	}
	if len(finished) > 0 {
		sum := 0
		for _, p := range finished {
			sum += *p.Score
		}
		agg.AverageScore = round2(float64(sum) / float64(len(finished)))
	}
	if class.MaxMembers > 0 {
		agg.CompletionRate = int(math.Round(float64(len(finished)) / float64(class.MaxMembers) * 100))
	}
	return agg
}

func finishedOnly(participants []domain.Participant) []domain.Participant {
	out := make([]domain.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Finished() {
			out = append(out, p)
		}
	}
	return out
}

func totalTime(p domain.Participant) int64 {
	if p.TotalTimeMs == nil {
		return 0
	}
	return *p.TotalTimeMs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
