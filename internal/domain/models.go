package domain

import "time"

// QuestionDuration is the fixed answering budget for every question.
const QuestionDuration = 30 * time.Second

// Class is an instructor-defined quiz unit.
type Class struct {
	ID           string    `json:"id"`
	Code         string    `json:"classCode"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PasswordHash string    `json:"-"`
	MaxMembers   int       `json:"maxMembers"`
	CreatedAt    time.Time `json:"createdAt"`
	CreatorID    string    `json:"creatorId"`
}

// Question models an MCQ question; CorrectIndex points into Options.
type Question struct {
	ID           string    `json:"id"`
	ClassID      string    `json:"classId"`
	Text         string    `json:"text"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correctIndex"`
	OrderIndex   int       `json:"orderIndex"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ValidIndex reports whether i addresses one of the options.
func (q Question) ValidIndex(i int) bool {
	return i >= 0 && i < len(q.Options)
}

// Participant is one student's attempt at a class quiz.
// Score, TotalTimeMs and FinishedAt are set together, once.
type Participant struct {
	ID               string     `json:"id"`
	ClassID          string     `json:"classId"`
	Name             string     `json:"name"`
	UserID           string     `json:"userId,omitempty"`
	JoinedAt         time.Time  `json:"joinedAt"`
	QuestionSequence []string   `json:"questionSequence"`
	Token            string     `json:"-"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
	Score            *int       `json:"score,omitempty"`
	TotalTimeMs      *int64     `json:"totalTimeMs,omitempty"`
}

// Finished reports whether the completion write has happened.
func (p Participant) Finished() bool {
	return p.FinishedAt != nil && p.Score != nil
}

// Answer is the single recorded outcome for a (participant, question) pair.
// A nil SelectedIndex means the timer expired with no selection.
type Answer struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participantId"`
	QuestionID    string    `json:"questionId"`
	SelectedIndex *int      `json:"selectedIndex"`
	IsCorrect     bool      `json:"isCorrect"`
	AnsweredAt    time.Time `json:"answeredAt"`
	TimeTakenMs   int64     `json:"timeTakenMs"`
}

// Identity is what the external identity provider hands us at join time.
type Identity struct {
	UserID string
	Name   string
}

// Result summarizes a finished participant.
type Result struct {
	ParticipantID string    `json:"participantId"`
	Score         int       `json:"score"`
	Total         int       `json:"total"`
	TotalTimeMs   int64     `json:"totalTimeMs"`
	Percentage    int       `json:"percentage"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// Standing is one row of the class ranking.
type Standing struct {
	Rank        int         `json:"rank"`
	Participant Participant `json:"participant"`
	Score       int         `json:"score"`
	Percentage  int         `json:"percentage"`
	TotalTimeMs int64       `json:"totalTimeMs"`
}

// Aggregates are class-wide statistics over finished participants.
type Aggregates struct {
	AverageScore   float64 `json:"averageScore"`
	CompletionRate int     `json:"completionRate"`
	FinishedCount  int     `json:"finishedCount"`
	JoinedCount    int     `json:"joinedCount"`
	QuestionCount  int     `json:"questionCount"`
	MaxMembers     int     `json:"maxMembers"`
}

// Outcome classifies a reviewed answer.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeExpired   Outcome = "expired"
)

// OutcomeOf tells a timed-out answer apart from a wrong selection.
func OutcomeOf(a Answer) Outcome {
	switch {
	case a.SelectedIndex == nil:
		return OutcomeExpired
	case a.IsCorrect:
		return OutcomeCorrect
	default:
		return OutcomeIncorrect
	}
}

// ReviewItem pairs one sequence entry with its question and answer.
type ReviewItem struct {
	Index    int      `json:"index"`
	Question Question `json:"question"`
	Answer   Answer   `json:"answer"`
	Outcome  Outcome  `json:"outcome"`
}

// Review is the per-question breakdown for a finished participant.
type Review struct {
	Participant Participant  `json:"participant"`
	Result      Result       `json:"result"`
	Items       []ReviewItem `json:"items"`
}

// ClassOverview is a dashboard card for a class the user created.
type ClassOverview struct {
	Class            Class `json:"class"`
	ParticipantCount int   `json:"participantCount"`
	QuestionCount    int   `json:"questionCount"`
}

// Participation is a dashboard card for a class the user joined.
type Participation struct {
	Class       Class       `json:"class"`
	Participant Participant `json:"participant"`
	Completed   bool        `json:"completed"`
	Resumable   bool        `json:"resumable"`
}

// Dashboard groups what a user created and joined.
type Dashboard struct {
	Created      []ClassOverview `json:"created"`
	Joined       []Participation `json:"joined"`
	AverageScore float64         `json:"averageScore"`
}

// SessionStatus is the coarse state of a quiz session.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// EventType names what a session broadcast carries.
type EventType string

const (
	EventQuestion  EventType = "question"
	EventAnswered  EventType = "answered"
	EventCompleted EventType = "completed"
)

// SessionEvent is pushed to session subscribers on every transition.
type SessionEvent struct {
	Type       EventType `json:"type"`
	Index      int       `json:"index"`
	Total      int       `json:"total"`
	QuestionID string    `json:"questionId,omitempty"`
	Expired    bool      `json:"expired,omitempty"`
	Result     *Result   `json:"result,omitempty"`
}
