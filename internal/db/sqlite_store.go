package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/quizly/internal/api"
	"github.com/soaringjerry/quizly/internal/models"
	"github.com/soaringjerry/quizly/internal/services"
)

// Fixed width keeps lexical order equal to chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// NewStore returns the SQLite store behind the api.Store interface.
func NewStore(db *sql.DB) (api.Store, error) {
	s, err := NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func int64ToBool(v int64) bool { return v != 0 }

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			log.Printf("sqlite store: parse time %q: %v", raw, err)
			return time.Time{}
		}
	}
	return t.UTC()
}

func encodeOptions(opts []string) (string, error) {
	if opts == nil {
		opts = []string{}
	}
	b, err := json.Marshal(opts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeOptions(raw string) []string {
	out := []string{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Printf("sqlite store: decode options: %v", err)
		return []string{}
	}
	return out
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) InsertUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, pass_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, toNullString(u.Name), u.PassHash, formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("insert user: %w", services.ErrDuplicateEmail)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*models.User, error) {
	var (
		u       models.User
		name    sql.NullString
		created string
	)
	if err := row.Scan(&u.ID, &u.Email, &name, &u.PassHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Name = name.String
	u.CreatedAt = parseTime(created)
	return &u, nil
}

func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, name, pass_hash, created_at FROM users WHERE email = ?`, email))
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, name, pass_hash, created_at FROM users WHERE id = ?`, id))
}

// InsertQuiz writes the quiz and its questions in one transaction.
func (s *SQLiteStore) InsertQuiz(ctx context.Context, q *models.Quiz) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin quiz tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO quizzes (id, title, description, creator_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		q.ID, q.Title, toNullString(q.Description), q.CreatorID, formatTime(q.CreatedAt)); err != nil {
		return fmt.Errorf("insert quiz row: %w", err)
	}
	for _, qu := range q.Questions {
		opts, err := encodeOptions(qu.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, quiz_id, text, type, options, required, position) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			qu.ID, q.ID, qu.Text, string(qu.Type), opts, boolToInt64(qu.Required), qu.Order); err != nil {
			return fmt.Errorf("insert question %s: %w", qu.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	var (
		q       models.Quiz
		desc    sql.NullString
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, creator_id, created_at FROM quizzes WHERE id = ?`, id).
		Scan(&q.ID, &q.Title, &desc, &q.CreatorID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	q.Description = desc.String
	q.CreatedAt = parseTime(created)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, type, options, required, position FROM questions WHERE quiz_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	q.Questions = []*models.Question{}
	for rows.Next() {
		var (
			qu       models.Question
			typ      string
			opts     string
			required int64
		)
		if err := rows.Scan(&qu.ID, &qu.Text, &typ, &opts, &required, &qu.Order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		qu.QuizID = q.ID
		qu.Type = models.QuestionType(typ)
		qu.Options = decodeOptions(opts)
		qu.Required = int64ToBool(required)
		q.Questions = append(q.Questions, &qu)
	}
	return &q, rows.Err()
}

const summarySelect = `SELECT q.id, q.title, q.description, q.creator_id, q.created_at,
       COALESCE(u.name, ''), COALESCE(u.email, ''),
       (SELECT COUNT(*) FROM questions qq WHERE qq.quiz_id = q.id),
       (SELECT COUNT(*) FROM responses r WHERE r.quiz_id = q.id)
FROM quizzes q LEFT JOIN users u ON u.id = q.creator_id`

func (s *SQLiteStore) listSummaries(ctx context.Context, query string, args ...any) ([]models.QuizSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()
	out := []models.QuizSummary{}
	for rows.Next() {
		var (
			q           models.Quiz
			desc        sql.NullString
			created     string
			name, email string
			sum         models.QuizSummary
		)
		if err := rows.Scan(&q.ID, &q.Title, &desc, &q.CreatorID, &created, &name, &email, &sum.QuestionCount, &sum.ResponseCount); err != nil {
			return nil, fmt.Errorf("scan quiz summary: %w", err)
		}
		q.Description = desc.String
		q.CreatedAt = parseTime(created)
		sum.Quiz = &q
		sum.CreatorName = (&models.User{Name: name, Email: email}).DisplayName()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListQuizzesByCreator(ctx context.Context, creatorID string) ([]models.QuizSummary, error) {
	return s.listSummaries(ctx, summarySelect+` WHERE q.creator_id = ? ORDER BY q.created_at DESC`, creatorID)
}

func (s *SQLiteStore) ListAllQuizzes(ctx context.Context) ([]models.QuizSummary, error) {
	return s.listSummaries(ctx, summarySelect+` ORDER BY q.created_at DESC`)
}

func (s *SQLiteStore) CountResponses(ctx context.Context, quizID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses WHERE quiz_id = ?`, quizID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

// InsertResponse writes the response row and its answers in one transaction.
// Any failure rolls back every row of the submission.
func (s *SQLiteStore) InsertResponse(ctx context.Context, r *models.Response) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin response tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO responses (id, quiz_id, submitter_name, submitter_email, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.QuizID, toNullString(r.SubmitterName), toNullString(r.SubmitterEmail), formatTime(r.SubmittedAt)); err != nil {
		return fmt.Errorf("insert response row: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO answers (id, response_id, question_id, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare answer insert: %w", err)
	}
	defer stmt.Close()
	for _, a := range r.Answers {
		if _, err := stmt.ExecContext(ctx, a.ID, r.ID, a.QuestionID, a.Value); err != nil {
			return fmt.Errorf("insert answer for %s: %w", a.QuestionID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListResponsesByQuiz(ctx context.Context, quizID string) ([]*models.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quiz_id, submitter_name, submitter_email, submitted_at FROM responses WHERE quiz_id = ? ORDER BY submitted_at DESC, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	out := []*models.Response{}
	byID := map[string]*models.Response{}
	for rows.Next() {
		var (
			r           models.Response
			name, email sql.NullString
			submitted   string
		)
		if err := rows.Scan(&r.ID, &r.QuizID, &name, &email, &submitted); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan response: %w", err)
		}
		r.SubmitterName = name.String
		r.SubmitterEmail = email.String
		r.SubmittedAt = parseTime(submitted)
		r.Answers = []*models.Answer{}
		out = append(out, &r)
		byID[r.ID] = &r
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	arows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.response_id, a.question_id, a.value
		   FROM answers a
		   JOIN responses r ON r.id = a.response_id
		   LEFT JOIN questions q ON q.id = a.question_id
		  WHERE r.quiz_id = ?
		  ORDER BY q.position`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var a models.Answer
		if err := arows.Scan(&a.ID, &a.ResponseID, &a.QuestionID, &a.Value); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if r := byID[a.ResponseID]; r != nil {
			r.Answers = append(r.Answers, &a)
		}
	}
	return out, arows.Err()
}

// AddAudit is best effort; failures are only logged.
func (s *SQLiteStore) AddAudit(ctx context.Context, e models.AuditEntry) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (time, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		formatTime(e.Time), toNullString(e.Actor), e.Action, toNullString(e.Target), toNullString(e.Note))
	s.logErr("add audit", err)
}

func (s *SQLiteStore) ListAudit(ctx context.Context) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT time, actor, action, target, note FROM audit_log ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()
	var out []models.AuditEntry
	for rows.Next() {
		var (
			e                   models.AuditEntry
			ts                  string
			actor, target, note sql.NullString
		)
		if err := rows.Scan(&ts, &actor, &e.Action, &target, &note); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Time = parseTime(ts)
		e.Actor, e.Target, e.Note = actor.String, target.String, note.String
		out = append(out, e)
	}
	return out, rows.Err()
}
