package domain

import "errors"

var (
	// ErrClassNotFound is returned for an unknown class id or code.
	ErrClassNotFound = errors.New("class not found")
	// ErrQuestionNotFound indicates a question id is unknown.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrParticipantNotFound is returned for an unknown participant id or token.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrUnauthorized means the presented token does not match the stored one.
	ErrUnauthorized = errors.New("session credential mismatch")
	// ErrInvariantViolation flags a programming error, e.g. completing with a partial answer set.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrCapacityExceeded is returned when the class is at maxMembers.
	ErrCapacityExceeded = errors.New("class is full")
	// ErrAlreadyJoined is returned when the user already has a participant in the class.
	ErrAlreadyJoined = errors.New("already joined this class")
	// ErrInvalidPassword is returned for a wrong class password.
	ErrInvalidPassword = errors.New("invalid class password")
	// ErrInvalidOption indicates a selection outside the question's options.
	ErrInvalidOption = errors.New("option out of range")
	// ErrQuestionClosed is returned when the timer already closed the current question.
	ErrQuestionClosed = errors.New("question already closed")
	// ErrSessionClosed is returned once a session was abandoned or failed.
	ErrSessionClosed = errors.New("session closed")
	// ErrNotStarted is returned when answering before Begin.
	ErrNotStarted = errors.New("quiz not started")
	// ErrQuizCompleted is returned when acting on a completed session.
	ErrQuizCompleted = errors.New("quiz already completed")
	// ErrDuplicateAnswer is returned by stores for a second answer to the same question.
	ErrDuplicateAnswer = errors.New("question already answered")
	// ErrForbidden is returned when a user manages a class they did not create.
	ErrForbidden = errors.New("not the class creator")
)

// IsNotFound groups lookups that must look identical to callers, including credential mismatches.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClassNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrParticipantNotFound) ||
		errors.Is(err, ErrUnauthorized)
}
