package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"class-quiz-service/internal/domain"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session is the live progression of one participant through its question
// sequence. It is rebuilt from storage on every resume; nothing in it has to
// survive a restart.
type Session struct {
	store     Store
	completer *Completer
	clock     clock.Clock
	log       logrus.FieldLogger
	recorder  Recorder

	mu          sync.Mutex
	participant domain.Participant
	answers     []domain.Answer
	status      domain.SessionStatus
	position    int
	question    *domain.Question
	countdown   *Countdown
	result      *domain.Result
	closed      bool
	subscribers map[chan domain.SessionEvent]struct{}
}

// resumeSession reconstructs a session for p. A participant whose every
// question is answered is completed on the way. If those answers cannot be
// scored the participant is left unscored and the session comes back closed,
// so nothing more can be submitted.
func resumeSession(ctx context.Context, svc *QuizService, p domain.Participant) (*Session, error) {
	s := &Session{
		store:       svc.store,
		completer:   svc.completer,
		clock:       svc.clock,
		log:         svc.log.WithField("participant_id", p.ID),
		recorder:    svc.recorder,
		participant: p,
		status:      domain.StatusNotStarted,
		subscribers: make(map[chan domain.SessionEvent]struct{}),
	}

	if p.Finished() {
		res := ResultOf(p)
		s.status = domain.StatusCompleted
		s.position = len(p.QuestionSequence)
		s.result = &res
		return s, nil
	}

	answers, err := svc.store.AnswersByParticipant(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	s.answers = answers
	s.position = ResolvePosition(p, answers)
	if s.position == len(p.QuestionSequence) {
		err := s.completeLocked(ctx)
		switch {
		case errors.Is(err, domain.ErrInvariantViolation):
			s.status = domain.StatusInProgress
			s.closed = true
		case err != nil:
			return nil, err
		}
	}
	return s, nil
}

// Participant returns the participant as last seen by the session.
func (s *Session) Participant() domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant
}

// Status returns the current state.
func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Position is the index of the current (or next) question in the sequence.
func (s *Session) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Total is the length of the question sequence.
func (s *Session) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participant.QuestionSequence)
}

// IsComplete reports whether the session reached its terminal state.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == domain.StatusCompleted
}

// Result returns the final summary once completed.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

// CurrentQuestion returns the question being answered, if any.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusInProgress || s.question == nil {
		return domain.Question{}, false
	}
	return *s.question, true
}

// Remaining is the time left on the current question, 0 when none is open.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	cd := s.countdown
	s.mu.Unlock()
	if cd == nil {
		return 0
	}
	return cd.Remaining()
}

// Begin presents the question at the resolved position with a full budget.
// Calling it on a session already in progress is a no-op.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return domain.ErrSessionClosed
	case s.status == domain.StatusCompleted:
		return domain.ErrQuizCompleted
	case s.status == domain.StatusInProgress:
		return nil
	}
	s.status = domain.StatusInProgress
	s.recorder.SessionStarted()
	return s.presentLocked(ctx)
}

// Submit answers the current question. A nil selection records "no answer".
// If the timer already closed the question the submit is dropped with
// domain.ErrQuestionClosed.
func (s *Session) Submit(ctx context.Context, selected *int) (domain.Answer, error) {
	return s.SubmitTo(ctx, "", selected)
}

// SubmitTo is Submit guarded by the id of the question the caller saw. A submit
// for a question the timer already moved past is dropped with
// domain.ErrQuestionClosed instead of landing on the next question. An empty
// questionID skips the check.
func (s *Session) SubmitTo(ctx context.Context, questionID string, selected *int) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		if questionID != "" && errors.Is(err, domain.ErrQuizCompleted) {
			return domain.Answer{}, domain.ErrQuestionClosed
		}
		return domain.Answer{}, err
	}
	if questionID != "" && s.question.ID != questionID {
		return domain.Answer{}, domain.ErrQuestionClosed
	}
	if selected != nil && !s.question.ValidIndex(*selected) {
		return domain.Answer{}, domain.ErrInvalidOption
	}
	cd := s.countdown
	elapsed, ok := cd.Claim()
	if !ok {
		return domain.Answer{}, domain.ErrQuestionClosed
	}
	return s.recordLocked(ctx, selected, elapsed, false)
}

// Abandon stops the current countdown without recording anything and closes
// the session. Resuming later re-presents the same question.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown != nil {
		s.countdown.Cancel()
		s.countdown = nil
	}
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Subscribe returns a channel of session events. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionEvent, func()) {
	ch := make(chan domain.SessionEvent, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) openLocked() error {
	switch {
	case s.closed:
		return domain.ErrSessionClosed
	case s.status == domain.StatusCompleted:
		return domain.ErrQuizCompleted
	case s.status == domain.StatusNotStarted || s.countdown == nil:
		return domain.ErrNotStarted
	}
	return nil
}

// expire is the countdown callback for cd.
func (s *Session) expire(cd *Countdown, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.countdown != cd {
		return
	}
	if _, err := s.recordLocked(context.Background(), nil, elapsed, true); err != nil {
		s.log.WithError(err).Error("record expired question")
	}
}

// recordLocked persists the answer for the current question and advances.
// The caller has already claimed the countdown.
func (s *Session) recordLocked(ctx context.Context, selected *int, elapsed time.Duration, expired bool) (domain.Answer, error) {
	q := *s.question
	answer := domain.Answer{
		ID:            uuid.NewString(),
		ParticipantID: s.participant.ID,
		QuestionID:    q.ID,
		SelectedIndex: selected,
		IsCorrect:     selected != nil && *selected == q.CorrectIndex,
		AnsweredAt:    s.clock.Now(),
		TimeTakenMs:   elapsed.Milliseconds(),
	}
	if err := s.store.CreateAnswer(ctx, answer); err != nil {
		s.failLocked()
		return domain.Answer{}, fmt.Errorf("record answer: %w", err)
	}
	s.recorder.AnswerRecorded(domain.OutcomeOf(answer))

	s.answers = append(s.answers, answer)
	s.position++
	s.question = nil
	s.countdown = nil
	total := len(s.participant.QuestionSequence)
	s.broadcastLocked(domain.SessionEvent{
		Type:       domain.EventAnswered,
		Index:      s.position - 1,
		Total:      total,
		QuestionID: q.ID,
		Expired:    expired,
	})

	if s.position == total {
		if err := s.completeLocked(ctx); err != nil {
			s.failLocked()
			return answer, err
		}
		return answer, nil
	}
	if err := s.presentLocked(ctx); err != nil {
		return answer, err
	}
	return answer, nil
}

// presentLocked loads the question at the current position and restarts the countdown.
func (s *Session) presentLocked(ctx context.Context) error {
	questionID := s.participant.QuestionSequence[s.position]
	q, err := s.store.QuestionByID(ctx, questionID)
	if err != nil {
		s.failLocked()
		return fmt.Errorf("load question %s: %w", questionID, err)
	}
	s.question = &q
	s.countdown = StartCountdown(s.clock, domain.QuestionDuration, s.expire)
	s.broadcastLocked(domain.SessionEvent{
		Type:       domain.EventQuestion,
		Index:      s.position,
		Total:      len(s.participant.QuestionSequence),
		QuestionID: q.ID,
	})
	return nil
}

func (s *Session) completeLocked(ctx context.Context) error {
	res, err := s.completer.Complete(ctx, s.participant, s.answers)
	if err != nil {
		return err
	}
	finishedAt := res.FinishedAt
	score := res.Score
	total := res.TotalTimeMs
	s.participant.FinishedAt = &finishedAt
	s.participant.Score = &score
	s.participant.TotalTimeMs = &total
	s.status = domain.StatusCompleted
	s.result = &res
	s.broadcastLocked(domain.SessionEvent{
		Type:   domain.EventCompleted,
		Index:  s.position,
		Total:  len(s.participant.QuestionSequence),
		Result: &res,
	})
	return nil
}

func (s *Session) failLocked() {
	if s.countdown != nil {
		s.countdown.Cancel()
		s.countdown = nil
	}
	s.question = nil
	s.closed = true
}

func (s *Session) broadcastLocked(ev domain.SessionEvent) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest event so a slow reader never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
