package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"class-quiz-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// Store implements app.Store on Postgres. Tables come from the migrations package.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const classColumns = `id, class_code, name, description, password_hash, max_members, created_at, creator_id`

func (s *Store) CreateClass(ctx context.Context, c domain.Class) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO classes (`+classColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Code, c.Name, c.Description, c.PasswordHash, c.MaxMembers, c.CreatedAt, c.CreatorID)
	if err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

func (s *Store) ClassByID(ctx context.Context, id string) (domain.Class, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id)
	return scanClass(row)
}

func (s *Store) ClassByCode(ctx context.Context, code string) (domain.Class, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+classColumns+` FROM classes WHERE class_code = $1`, code)
	return scanClass(row)
}

func (s *Store) ClassesByCreator(ctx context.Context, creatorID string) ([]domain.Class, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+classColumns+` FROM classes WHERE creator_id = $1 ORDER BY created_at, id`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()
	var out []domain.Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const questionColumns = `id, class_id, text, options, correct_index, order_index, created_at`

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO questions (`+questionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.ID, q.ClassID, q.Text, q.Options, q.CorrectIndex, q.OrderIndex, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *Store) QuestionByID(ctx context.Context, id string) (domain.Question, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	return scanQuestion(row)
}

func (s *Store) QuestionsByClass(ctx context.Context, classID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE class_id = $1 ORDER BY order_index, created_at`, classID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

const participantColumns = `id, class_id, name, coalesce(user_id, ''), joined_at, question_sequence, token, finished_at, score, total_time_ms`

func (s *Store) CreateParticipant(ctx context.Context, p domain.Participant) error {
	sequence := p.QuestionSequence
	if sequence == nil {
		sequence = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO participants (id, class_id, name, user_id, joined_at, question_sequence, token)
		VALUES ($1, $2, $3, nullif($4, ''), $5, $6, $7)`,
		p.ID, p.ClassID, p.Name, p.UserID, p.JoinedAt, sequence, p.Token)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *Store) ParticipantByID(ctx context.Context, id string) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = $1`, id)
	return scanParticipant(row)
}

func (s *Store) ParticipantByToken(ctx context.Context, token string) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants WHERE token = $1`, token)
	return scanParticipant(row)
}

func (s *Store) ParticipantsByClass(ctx context.Context, classID string) ([]domain.Participant, error) {
	return s.queryParticipants(ctx, `SELECT `+participantColumns+` FROM participants WHERE class_id = $1 ORDER BY seq`, classID)
}

func (s *Store) ParticipantsByUser(ctx context.Context, userID string) ([]domain.Participant, error) {
	if userID == "" {
		return nil, nil
	}
	return s.queryParticipants(ctx, `SELECT `+participantColumns+` FROM participants WHERE user_id = $1 ORDER BY seq`, userID)
}

// FinishParticipant is a compare-and-set on finished_at: a second caller gets
// the row as the first one left it.
func (s *Store) FinishParticipant(ctx context.Context, id string, score int, totalTimeMs int64, finishedAt time.Time) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE participants
		SET score = $2, total_time_ms = $3, finished_at = $4
		WHERE id = $1 AND finished_at IS NULL
		RETURNING `+participantColumns,
		id, score, totalTimeMs, finishedAt)
	p, err := scanParticipant(row)
	if errors.Is(err, domain.ErrParticipantNotFound) {
		// Either already finished or unknown; the plain read tells which.
		return s.ParticipantByID(ctx, id)
	}
	return p, err
}

func (s *Store) CreateAnswer(ctx context.Context, a domain.Answer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO answers (id, participant_id, question_id, selected_index, is_correct, answered_at, time_taken_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.ParticipantID, a.QuestionID, a.SelectedIndex, a.IsCorrect, a.AnsweredAt, a.TimeTakenMs)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateAnswer
		}
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (s *Store) AnswersByParticipant(ctx context.Context, participantID string) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, participant_id, question_id, selected_index, is_correct, answered_at, time_taken_ms
		FROM answers WHERE participant_id = $1 ORDER BY answered_at, id`, participantID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()
	var out []domain.Answer
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.ParticipantID, &a.QuestionID, &a.SelectedIndex, &a.IsCorrect, &a.AnsweredAt, &a.TimeTakenMs); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) queryParticipants(ctx context.Context, sql string, arg string) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()
	var out []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanClass(row pgx.Row) (domain.Class, error) {
	var c domain.Class
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.PasswordHash, &c.MaxMembers, &c.CreatedAt, &c.CreatorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Class{}, domain.ErrClassNotFound
	}
	if err != nil {
		return domain.Class{}, fmt.Errorf("scan class: %w", err)
	}
	return c, nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	err := row.Scan(&q.ID, &q.ClassID, &q.Text, &q.Options, &q.CorrectIndex, &q.OrderIndex, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	return q, nil
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(&p.ID, &p.ClassID, &p.Name, &p.UserID, &p.JoinedAt, &p.QuestionSequence, &p.Token, &p.FinishedAt, &p.Score, &p.TotalTimeMs)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("scan participant: %w", err)
	}
	return p, nil
}
