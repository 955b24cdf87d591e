package app

import (
	"context"
	"time"

	"class-quiz-service/internal/domain"
)

// ClassStore persists classes.
type ClassStore interface {
	CreateClass(ctx context.Context, class domain.Class) error
	ClassByID(ctx context.Context, id string) (domain.Class, error)
	ClassByCode(ctx context.Context, code string) (domain.Class, error)
	ClassesByCreator(ctx context.Context, creatorID string) ([]domain.Class, error)
}

// QuestionStore persists questions. QuestionsByClass returns them by OrderIndex.
type QuestionStore interface {
	CreateQuestion(ctx context.Context, question domain.Question) error
	QuestionByID(ctx context.Context, id string) (domain.Question, error)
	QuestionsByClass(ctx context.Context, classID string) ([]domain.Question, error)
}

// ParticipantStore persists participants. ParticipantsByClass returns them in join order.
type ParticipantStore interface {
	CreateParticipant(ctx context.Context, participant domain.Participant) error
	ParticipantByID(ctx context.Context, id string) (domain.Participant, error)
	ParticipantByToken(ctx context.Context, token string) (domain.Participant, error)
	ParticipantsByClass(ctx context.Context, classID string) ([]domain.Participant, error)
	ParticipantsByUser(ctx context.Context, userID string) ([]domain.Participant, error)
	// FinishParticipant writes the completion fields only if they are unset and
	// returns the stored participant either way.
	FinishParticipant(ctx context.Context, id string, score int, totalTimeMs int64, finishedAt time.Time) (domain.Participant, error)
}

// AnswerStore persists answers; CreateAnswer rejects a second answer for the
// same participant and question with domain.ErrDuplicateAnswer.
type AnswerStore interface {
	CreateAnswer(ctx context.Context, answer domain.Answer) error
	AnswersByParticipant(ctx context.Context, participantID string) ([]domain.Answer, error)
}

// Store is the record store the quiz core runs against.
type Store interface {
	ClassStore
	QuestionStore
	ParticipantStore
	AnswerStore
}

// SessionRegistry tracks the live session of each participant.
type SessionRegistry interface {
	// Attach registers s and returns the session it replaced, if any.
	Attach(s *Session) *Session
	Get(participantID string) (*Session, bool)
	// Detach removes s if it is still the registered session for its participant.
	Detach(s *Session)
}
