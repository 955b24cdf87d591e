package app

import "class-quiz-service/internal/domain"

// Recorder receives counters for quiz activity (see internal/metrics).
type Recorder interface {
	Joined()
	SessionStarted()
	AnswerRecorded(outcome domain.Outcome)
	SessionCompleted()
}

type nopRecorder struct{}

func (nopRecorder) Joined()                       {}
func (nopRecorder) SessionStarted()               {}
func (nopRecorder) AnswerRecorded(domain.Outcome) {}
func (nopRecorder) SessionCompleted()             {}
