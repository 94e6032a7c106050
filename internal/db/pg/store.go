package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/soaringjerry/quizly/internal/api"
	"github.com/soaringjerry/quizly/internal/db/pg/migrations"
	"github.com/soaringjerry/quizly/internal/models"
	"github.com/soaringjerry/quizly/internal/services"
)

// Open connects to Postgres through pgdriver and wraps the pool in bun.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies pending bun migrations.
func Migrate(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if group.IsZero() {
		log.Printf("postgres store: no new migrations")
		return nil
	}
	log.Printf("postgres store: migrated to %s", group)
	return nil
}

// BunStore implements the quiz repository on Postgres.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

var _ api.Store = (*BunStore)(nil)

func (s *BunStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *BunStore) InsertUser(ctx context.Context, u *models.User) error {
	if _, err := s.db.NewInsert().Model(fromUser(u)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", services.ErrDuplicateEmail)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

func (s *BunStore) findUser(ctx context.Context, column, value string) (*models.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("? = ?", bun.Ident(column), value).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return row.model(), nil
}

func (s *BunStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email", email)
}

func (s *BunStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *BunStore) InsertQuiz(ctx context.Context, q *models.Quiz) error {
	qr, qs := fromQuiz(q)
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(qr).Exec(ctx); err != nil {
			return fmt.Errorf("insert quiz row: %w", err)
		}
		if len(qs) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&qs).Exec(ctx); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
}

func (s *BunStore) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	var qr quizRow
	err := s.db.NewSelect().Model(&qr).Where("q.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	var qs []questionRow
	if err := s.db.NewSelect().Model(&qs).Where("qu.quiz_id = ?", id).Order("qu.position ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return toQuiz(&qr, qs), nil
}

func (s *BunStore) summaryQuery() *bun.SelectQuery {
	return s.db.NewSelect().
		TableExpr("quizzes AS q").
		ColumnExpr("q.id, q.title, q.description, q.creator_id, q.created_at").
		ColumnExpr("COALESCE(u.name, '') AS creator_name, COALESCE(u.email, '') AS creator_email").
		ColumnExpr("(SELECT count(*) FROM questions AS qq WHERE qq.quiz_id = q.id) AS question_count").
		ColumnExpr("(SELECT count(*) FROM responses AS rr WHERE rr.quiz_id = q.id) AS response_count").
		Join("LEFT JOIN users AS u ON u.id = q.creator_id").
		OrderExpr("q.created_at DESC")
}

func (s *BunStore) scanSummaries(ctx context.Context, q *bun.SelectQuery) ([]models.QuizSummary, error) {
	var rows []summaryRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]models.QuizSummary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].model())
	}
	return out, nil
}

func (s *BunStore) ListQuizzesByCreator(ctx context.Context, creatorID string) ([]models.QuizSummary, error) {
	return s.scanSummaries(ctx, s.summaryQuery().Where("q.creator_id = ?", creatorID))
}

func (s *BunStore) ListAllQuizzes(ctx context.Context) ([]models.QuizSummary, error) {
	return s.scanSummaries(ctx, s.summaryQuery())
}

func (s *BunStore) CountResponses(ctx context.Context, quizID string) (int, error) {
	n, err := s.db.NewSelect().Model((*responseRow)(nil)).Where("r.quiz_id = ?", quizID).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

func (s *BunStore) InsertResponse(ctx context.Context, r *models.Response) error {
	rr, as := fromResponse(r)
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(rr).Exec(ctx); err != nil {
			return fmt.Errorf("insert response row: %w", err)
		}
		if len(as) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&as).Exec(ctx); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		return nil
	})
}

func (s *BunStore) ListResponsesByQuiz(ctx context.Context, quizID string) ([]*models.Response, error) {
	var rows []responseRow
	if err := s.db.NewSelect().Model(&rows).
		Where("r.quiz_id = ?", quizID).
		Order("r.submitted_at DESC", "r.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	out := make([]*models.Response, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	byID := make(map[string]*models.Response, len(rows))
	ids := make([]string, 0, len(rows))
	for _, rr := range rows {
		r := &models.Response{
			ID:             rr.ID,
			QuizID:         rr.QuizID,
			SubmitterName:  rr.SubmitterName,
			SubmitterEmail: rr.SubmitterEmail,
			SubmittedAt:    rr.SubmittedAt.UTC(),
			Answers:        []*models.Answer{},
		}
		out = append(out, r)
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}

	var answers []answerRow
	if err := s.db.NewSelect().Model(&answers).
		Join("LEFT JOIN questions AS qu ON qu.id = a.question_id").
		Where("a.response_id IN (?)", bun.In(ids)).
		OrderExpr("qu.position ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	for _, a := range answers {
		if r := byID[a.ResponseID]; r != nil {
			r.Answers = append(r.Answers, &models.Answer{ID: a.ID, ResponseID: a.ResponseID, QuestionID: a.QuestionID, Value: a.Value})
		}
	}
	return out, nil
}

// AddAudit is best effort; failures are only logged.
func (s *BunStore) AddAudit(ctx context.Context, e models.AuditEntry) {
	row := &auditRow{Time: e.Time.UTC(), Actor: e.Actor, Action: e.Action, Target: e.Target, Note: e.Note}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		log.Printf("postgres store: add audit: %v", err)
	}
}

func (s *BunStore) ListAudit(ctx context.Context) ([]models.AuditEntry, error) {
	var rows []auditRow
	if err := s.db.NewSelect().Model(&rows).Order("al.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	out := make([]models.AuditEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.AuditEntry{Time: r.Time.UTC(), Actor: r.Actor, Action: r.Action, Target: r.Target, Note: r.Note})
	}
	return out, nil
}
