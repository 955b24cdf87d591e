package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"class-quiz-service/internal/domain"
	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	classCodeLength   = 6
	classCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	classCodeAttempts = 10
)

// QuizService contains the quiz use cases: authoring, joining, taking and results.
type QuizService struct {
	store        Store
	sessions     SessionRegistry
	clock        clock.Clock
	log          logrus.FieldLogger
	recorder     Recorder
	strict       bool
	passwordCost int
	validate     *validator.Validate

	completer *Completer
	ranker    *Ranker

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithClock replaces the wall clock; tests pass a *clock.Mock.
func WithClock(c clock.Clock) Option { return func(s *QuizService) { s.clock = c } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(s *QuizService) { s.log = l } }

// WithRecorder wires activity counters.
func WithRecorder(r Recorder) Option { return func(s *QuizService) { s.recorder = r } }

// WithStrict makes invariant violations panic instead of degrading.
func WithStrict(strict bool) Option { return func(s *QuizService) { s.strict = strict } }

// WithRand seeds question shuffling and class codes.
func WithRand(r *rand.Rand) Option { return func(s *QuizService) { s.rnd = r } }

// WithPasswordCost sets the bcrypt cost for class passwords.
func WithPasswordCost(cost int) Option { return func(s *QuizService) { s.passwordCost = cost } }

func NewQuizService(store Store, sessions SessionRegistry, opts ...Option) *QuizService {
	s := &QuizService{
		store:        store,
		sessions:     sessions,
		clock:        clock.New(),
		log:          logrus.StandardLogger(),
		recorder:     nopRecorder{},
		passwordCost: bcrypt.DefaultCost,
		validate:     validator.New(),
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.completer = NewCompleter(store, s.clock.Now, s.log, s.recorder, s.strict)
	s.ranker = NewRanker(store)
	return s
}

// NewClass is the authoring input for a class.
type NewClass struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Password    string `json:"password" validate:"required,min=4"`
	MaxMembers  int    `json:"maxMembers" validate:"min=1,max=40"`
}

// NewQuestion is the authoring input for a question.
type NewQuestion struct {
	Text         string   `json:"text" validate:"required"`
	Options      []string `json:"options" validate:"min=2,max=5,dive,required"`
	CorrectIndex int      `json:"correctIndex" validate:"min=0"`
}

// ValidationError wraps input validation failures.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid input: " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// CreateClass registers a class under a fresh class code.
func (s *QuizService) CreateClass(ctx context.Context, creatorID string, in NewClass) (domain.Class, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return domain.Class{}, &ValidationError{Err: err}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.passwordCost)
	if err != nil {
		return domain.Class{}, fmt.Errorf("hash password: %w", err)
	}
	code, err := s.freeClassCode(ctx)
	if err != nil {
		return domain.Class{}, err
	}

	class := domain.Class{
		ID:           uuid.NewString(),
		Code:         code,
		Name:         in.Name,
		Description:  in.Description,
		PasswordHash: string(hash),
		MaxMembers:   in.MaxMembers,
		CreatedAt:    s.clock.Now(),
		CreatorID:    creatorID,
	}
	if err := s.store.CreateClass(ctx, class); err != nil {
		return domain.Class{}, fmt.Errorf("create class: %w", err)
	}
	s.log.WithFields(logrus.Fields{"class_id": class.ID, "class_code": class.Code}).Info("class created")
	return class, nil
}

// AddQuestion appends a question to a class owned by creatorID.
func (s *QuizService) AddQuestion(ctx context.Context, classCode, creatorID string, in NewQuestion) (domain.Question, error) {
	class, err := s.ClassByCode(ctx, classCode)
	if err != nil {
		return domain.Question{}, err
	}
	if class.CreatorID != creatorID {
		return domain.Question{}, domain.ErrForbidden
	}
	in.Text = strings.TrimSpace(in.Text)
	for i := range in.Options {
		in.Options[i] = strings.TrimSpace(in.Options[i])
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.Question{}, &ValidationError{Err: err}
	}
	if in.CorrectIndex >= len(in.Options) {
		return domain.Question{}, &ValidationError{Err: domain.ErrInvalidOption}
	}

	existing, err := s.store.QuestionsByClass(ctx, class.ID)
	if err != nil {
		return domain.Question{}, fmt.Errorf("load questions: %w", err)
	}
	q := domain.Question{
		ID:           uuid.NewString(),
		ClassID:      class.ID,
		Text:         in.Text,
		Options:      append([]string(nil), in.Options...),
		CorrectIndex: in.CorrectIndex,
		OrderIndex:   len(existing),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// Questions lists a class's questions for its creator.
func (s *QuizService) Questions(ctx context.Context, classCode, creatorID string) ([]domain.Question, error) {
	class, err := s.ClassByCode(ctx, classCode)
	if err != nil {
		return nil, err
	}
	if class.CreatorID != creatorID {
		return nil, domain.ErrForbidden
	}
	return s.store.QuestionsByClass(ctx, class.ID)
}

// ClassByCode resolves a class code, case-insensitively.
func (s *QuizService) ClassByCode(ctx context.Context, code string) (domain.Class, error) {
	return s.store.ClassByCode(ctx, normalizeCode(code))
}

// Join creates a participant with a freshly shuffled, frozen question sequence.
// Questions added later are never seen by this participant.
func (s *QuizService) Join(ctx context.Context, classCode, password string, who domain.Identity) (domain.Participant, error) {
	class, err := s.ClassByCode(ctx, classCode)
	if err != nil {
		return domain.Participant{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(class.PasswordHash), []byte(password)) != nil {
		return domain.Participant{}, domain.ErrInvalidPassword
	}

	existing, err := s.store.ParticipantsByClass(ctx, class.ID)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("load participants: %w", err)
	}
	if len(existing) >= class.MaxMembers {
		return domain.Participant{}, domain.ErrCapacityExceeded
	}
	if who.UserID != "" {
		for _, p := range existing {
			if p.UserID == who.UserID {
				return domain.Participant{}, domain.ErrAlreadyJoined
			}
		}
	}

	questions, err := s.store.QuestionsByClass(ctx, class.ID)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("load questions: %w", err)
	}
	sequence := make([]string, len(questions))
	for i, q := range questions {
		sequence[i] = q.ID
	}
	s.shuffle(sequence)

	participant := domain.Participant{
		ID:               uuid.NewString(),
		ClassID:          class.ID,
		Name:             strings.TrimSpace(who.Name),
		UserID:           who.UserID,
		JoinedAt:         s.clock.Now(),
		QuestionSequence: sequence,
		Token:            uuid.NewString(),
	}
	if err := s.store.CreateParticipant(ctx, participant); err != nil {
		return domain.Participant{}, fmt.Errorf("create participant: %w", err)
	}
	s.recorder.Joined()
	s.log.WithFields(logrus.Fields{"class_id": class.ID, "participant_id": participant.ID}).Info("participant joined")
	return participant, nil
}

// StartSession resumes the session identified by its token.
func (s *QuizService) StartSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, domain.ErrParticipantNotFound
	}
	p, err := s.store.ParticipantByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.attach(ctx, p)
}

// StartSessionFor resumes a participant by id, but only for the holder of its token.
func (s *QuizService) StartSessionFor(ctx context.Context, participantID, heldToken string) (*Session, error) {
	p, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if heldToken == "" || subtle.ConstantTimeCompare([]byte(p.Token), []byte(heldToken)) != 1 {
		return nil, domain.ErrUnauthorized
	}
	return s.attach(ctx, p)
}

// EndSession abandons a live session and forgets it.
func (s *QuizService) EndSession(session *Session) {
	session.Abandon()
	s.sessions.Detach(session)
}

func (s *QuizService) attach(ctx context.Context, p domain.Participant) (*Session, error) {
	session, err := resumeSession(ctx, s, p)
	if err != nil {
		return nil, err
	}
	if previous := s.sessions.Attach(session); previous != nil && previous != session {
		previous.Abandon()
	}
	return session, nil
}

// Result returns the final result for a token. Unfinished sessions are not found.
func (s *QuizService) Result(ctx context.Context, token string) (domain.Result, error) {
	p, err := s.store.ParticipantByToken(ctx, token)
	if err != nil {
		return domain.Result{}, err
	}
	if !p.Finished() {
		return domain.Result{}, domain.ErrParticipantNotFound
	}
	return ResultOf(p), nil
}

// Rankings orders a class's finished participants.
func (s *QuizService) Rankings(ctx context.Context, classID string) ([]domain.Standing, error) {
	return s.ranker.Rankings(ctx, classID)
}

// Aggregates computes class statistics.
func (s *QuizService) Aggregates(ctx context.Context, classID string) (domain.Aggregates, error) {
	return s.ranker.Aggregates(ctx, classID)
}

// Review returns the per-question breakdown of a finished participant.
func (s *QuizService) Review(ctx context.Context, classID, participantID string) (domain.Review, error) {
	return s.ranker.Review(ctx, classID, participantID)
}

// ClassResults bundles what the results view shows for a class code.
type ClassResults struct {
	Class      domain.Class      `json:"class"`
	Standings  []domain.Standing `json:"standings"`
	Aggregates domain.Aggregates `json:"aggregates"`
}

// Results resolves a class code and computes its standings and aggregates.
func (s *QuizService) Results(ctx context.Context, classCode string) (ClassResults, error) {
	class, err := s.ClassByCode(ctx, classCode)
	if err != nil {
		return ClassResults{}, err
	}
	standings, err := s.ranker.Rankings(ctx, class.ID)
	if err != nil {
		return ClassResults{}, err
	}
	agg, err := s.ranker.Aggregates(ctx, class.ID)
	if err != nil {
		return ClassResults{}, err
	}
	return ClassResults{Class: class, Standings: standings, Aggregates: agg}, nil
}

// Dashboard lists the classes a user created and the ones they joined.
func (s *QuizService) Dashboard(ctx context.Context, userID string) (domain.Dashboard, error) {
	dash := domain.Dashboard{Created: []domain.ClassOverview{}, Joined: []domain.Participation{}}

	created, err := s.store.ClassesByCreator(ctx, userID)
	if err != nil {
		return dash, fmt.Errorf("load classes: %w", err)
	}
	for _, c := range created {
		participants, err := s.store.ParticipantsByClass(ctx, c.ID)
		if err != nil {
			return dash, fmt.Errorf("load participants: %w", err)
		}
		questions, err := s.store.QuestionsByClass(ctx, c.ID)
		if err != nil {
			return dash, fmt.Errorf("load questions: %w", err)
		}
		dash.Created = append(dash.Created, domain.ClassOverview{
			Class:            c,
			ParticipantCount: len(participants),
			QuestionCount:    len(questions),
		})
	}

	joined, err := s.store.ParticipantsByUser(ctx, userID)
	if err != nil {
		return dash, fmt.Errorf("load participations: %w", err)
	}
	sum, finished := 0, 0
	for _, p := range joined {
		c, err := s.store.ClassByID(ctx, p.ClassID)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return dash, err
		}
		done := p.Finished()
		if done {
			sum += *p.Score
			finished++
		}
		dash.Joined = append(dash.Joined, domain.Participation{
			Class:       c,
			Participant: p,
			Completed:   done,
			Resumable:   !done && len(p.QuestionSequence) > 0,
		})
	}
	if finished > 0 {
		dash.AverageScore = round2(float64(sum) / float64(finished))
	}
	return dash, nil
}

func (s *QuizService) freeClassCode(ctx context.Context) (string, error) {
	for i := 0; i < classCodeAttempts; i++ {
		code := s.classCode()
		_, err := s.store.ClassByCode(ctx, code)
		if errors.Is(err, domain.ErrClassNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check class code: %w", err)
		}
	}
	return "", fmt.Errorf("no free class code after %d attempts", classCodeAttempts)
}

func (s *QuizService) classCode() string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	b := make([]byte, classCodeLength)
	for i := range b {
		b[i] = classCodeAlphabet[s.rnd.Intn(len(classCodeAlphabet))]
	}
	return string(b)
}

func (s *QuizService) shuffle(ids []string) {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	s.rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
