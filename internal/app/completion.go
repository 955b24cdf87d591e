package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"class-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// Completer finalizes a participant into a score and time summary, at most once.
type Completer struct {
	store    ParticipantStore
	now      func() time.Time
	log      logrus.FieldLogger
	recorder Recorder
	strict   bool
}

// NewCompleter builds a Completer. In strict mode an inconsistent answer set panics
// instead of being reported as domain.ErrInvariantViolation.
func NewCompleter(store ParticipantStore, now func() time.Time, log logrus.FieldLogger, recorder Recorder, strict bool) *Completer {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Completer{store: store, now: now, log: log, recorder: recorder, strict: strict}
}

// Complete scores the participant from its answers. An already finished
// participant is returned unchanged.
func (c *Completer) Complete(ctx context.Context, participant domain.Participant, answers []domain.Answer) (domain.Result, error) {
	if participant.Finished() {
		return ResultOf(participant), nil
	}
	if err := checkAnswerSet(participant, answers); err != nil {
		if c.strict {
			panic(err)
		}
		c.log.WithError(err).WithField("participant_id", participant.ID).Error("refusing to score participant")
		return domain.Result{}, err
	}

	score, total := Tally(answers)
	stored, err := c.store.FinishParticipant(ctx, participant.ID, score, total, c.now())
	if err != nil {
		return domain.Result{}, fmt.Errorf("finish participant: %w", err)
	}
	if !stored.Finished() {
		return domain.Result{}, fmt.Errorf("%w: participant %s not finished after write", domain.ErrInvariantViolation, participant.ID)
	}
	c.recorder.SessionCompleted()
	c.log.WithFields(logrus.Fields{
		"participant_id": stored.ID,
		"class_id":       stored.ClassID,
		"score":          *stored.Score,
	}).Info("participant finished")
	return ResultOf(stored), nil
}

// Tally returns the number of correct answers and the summed answer time.
func Tally(answers []domain.Answer) (score int, totalTimeMs int64) {
	for _, a := range answers {
		if a.IsCorrect {
			score++
		}
		totalTimeMs += a.TimeTakenMs
	}
	return score, totalTimeMs
}

// ResultOf reads the stored completion fields of a finished participant.
func ResultOf(p domain.Participant) domain.Result {
	res := domain.Result{ParticipantID: p.ID, Total: len(p.QuestionSequence)}
	if p.Score != nil {
		res.Score = *p.Score
	}
	if p.TotalTimeMs != nil {
		res.TotalTimeMs = *p.TotalTimeMs
	}
	if p.FinishedAt != nil {
		res.FinishedAt = *p.FinishedAt
	}
	res.Percentage = Percent(res.Score, res.Total)
	return res
}

// Percent is round(score/total*100), 0 when total is 0.
func Percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

// checkAnswerSet requires exactly one answer per sequence entry and nothing else.
func checkAnswerSet(p domain.Participant, answers []domain.Answer) error {
	if len(answers) != len(p.QuestionSequence) {
		return fmt.Errorf("%w: %d answers for %d questions", domain.ErrInvariantViolation, len(answers), len(p.QuestionSequence))
	}
	inSequence := make(map[string]bool, len(p.QuestionSequence))
	for _, id := range p.QuestionSequence {
		inSequence[id] = false
	}
	for _, a := range answers {
		seen, ok := inSequence[a.QuestionID]
		if !ok {
			return fmt.Errorf("%w: answer for question %s outside sequence", domain.ErrInvariantViolation, a.QuestionID)
		}
		if seen {
			return fmt.Errorf("%w: duplicate answer for question %s", domain.ErrInvariantViolation, a.QuestionID)
		}
		inSequence[a.QuestionID] = true
	}
	return nil
}
