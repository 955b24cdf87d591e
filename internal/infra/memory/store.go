package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"class-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.Store. Slices keep insertion
// order, which the ranking relies on as its final tie-break.
type Store struct {
	mu           sync.RWMutex
	classes      []domain.Class
	questions    []domain.Question
	participants []domain.Participant
	answers      []domain.Answer
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) CreateClass(_ context.Context, class domain.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes = append(s.classes, class)
	return nil
}

func (s *Store) ClassByID(_ context.Context, id string) (domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.classes {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Class{}, domain.ErrClassNotFound
}

func (s *Store) ClassByCode(_ context.Context, code string) (domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.classes {
		if c.Code == code {
			return c, nil
		}
	}
	return domain.Class{}, domain.ErrClassNotFound
}

func (s *Store) ClassesByCreator(_ context.Context, creatorID string) ([]domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Class
	for _, c := range s.classes {
		if c.CreatorID == creatorID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.Options = append([]string(nil), q.Options...)
	s.questions = append(s.questions, q)
	return nil
}

func (s *Store) QuestionByID(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions {
		if q.ID == id {
			return copyQuestion(q), nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *Store) QuestionsByClass(_ context.Context, classID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, q := range s.questions {
		if q.ClassID == classID {
			out = append(out, copyQuestion(q))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (s *Store) CreateParticipant(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = append(s.participants, copyParticipant(p))
	return nil
}

func (s *Store) ParticipantByID(_ context.Context, id string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants {
		if p.ID == id {
			return copyParticipant(p), nil
		}
	}
	return domain.Participant{}, domain.ErrParticipantNotFound
}

func (s *Store) ParticipantByToken(_ context.Context, token string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants {
		if p.Token == token {
			return copyParticipant(p), nil
		}
	}
	return domain.Participant{}, domain.ErrParticipantNotFound
}

func (s *Store) ParticipantsByClass(_ context.Context, classID string) ([]domain.Participant, error) {
	return s.filterParticipants(func(p domain.Participant) bool { return p.ClassID == classID }), nil
}

func (s *Store) ParticipantsByUser(_ context.Context, userID string) ([]domain.Participant, error) {
	if userID == "" {
		return nil, nil
	}
	return s.filterParticipants(func(p domain.Participant) bool { return p.UserID == userID }), nil
}

// FinishParticipant sets the completion fields under the write lock, only if unset.
func (s *Store) FinishParticipant(_ context.Context, id string, score int, totalTimeMs int64, finishedAt time.Time) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.participants {
		p := &s.participants[i]
		if p.ID != id {
			continue
		}
		if p.FinishedAt == nil {
			p.Score = &score
			p.TotalTimeMs = &totalTimeMs
			p.FinishedAt = &finishedAt
		}
		return copyParticipant(*p), nil
	}
	return domain.Participant{}, domain.ErrParticipantNotFound
}

func (s *Store) CreateAnswer(_ context.Context, a domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.answers {
		if existing.ParticipantID == a.ParticipantID && existing.QuestionID == a.QuestionID {
			return domain.ErrDuplicateAnswer
		}
	}
	s.answers = append(s.answers, a)
	return nil
}

func (s *Store) AnswersByParticipant(_ context.Context, participantID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Answer
	for _, a := range s.answers {
		if a.ParticipantID == participantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) filterParticipants(keep func(domain.Participant) bool) []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Participant
	for _, p := range s.participants {
		if keep(p) {
			out = append(out, copyParticipant(p))
		}
	}
	return out
}

func copyQuestion(q domain.Question) domain.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}

func copyParticipant(p domain.Participant) domain.Participant {
	p.QuestionSequence = append([]string(nil), p.QuestionSequence...)
	if p.Score != nil {
		v := *p.Score
		p.Score = &v
	}
	if p.TotalTimeMs != nil {
		v := *p.TotalTimeMs
		p.TotalTimeMs = &v
	}
	if p.FinishedAt != nil {
		v := *p.FinishedAt
		p.FinishedAt = &v
	}
	return p
}
