package pg

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/soaringjerry/quizly/internal/models"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk"`
	Email     string    `bun:"email,notnull"`
	Name      string    `bun:"name,nullzero"`
	PassHash  []byte    `bun:"pass_hash,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID          string    `bun:"id,pk"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,nullzero"`
	CreatorID   string    `bun:"creator_id,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qu"`

	ID       string   `bun:"id,pk"`
	QuizID   string   `bun:"quiz_id,notnull"`
	Text     string   `bun:"text,notnull"`
	Type     string   `bun:"type,notnull"`
	Options  []string `bun:"options,type:jsonb,notnull"`
	Required bool     `bun:"required,notnull"`
	Position int      `bun:"position,notnull"`
}

type responseRow struct {
	bun.BaseModel `bun:"table:responses,alias:r"`

	ID             string    `bun:"id,pk"`
	QuizID         string    `bun:"quiz_id,notnull"`
	SubmitterName  string    `bun:"submitter_name,nullzero"`
	SubmitterEmail string    `bun:"submitter_email,nullzero"`
	SubmittedAt    time.Time `bun:"submitted_at,notnull"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID         string `bun:"id,pk"`
	ResponseID string `bun:"response_id,notnull"`
	QuestionID string `bun:"question_id,notnull"`
	Value      string `bun:"value,notnull"`
}

type auditRow struct {
	bun.BaseModel `bun:"table:audit_log,alias:al"`

	ID     int64     `bun:"id,pk,autoincrement"`
	Time   time.Time `bun:"time,notnull"`
	Actor  string    `bun:"actor,nullzero"`
	Action string    `bun:"action,notnull"`
	Target string    `bun:"target,nullzero"`
	Note   string    `bun:"note,nullzero"`
}

// summaryRow is scanned from the quiz listing query, not a table.
type summaryRow struct {
	ID            string    `bun:"id"`
	Title         string    `bun:"title"`
	Description   string    `bun:"description"`
	CreatorID     string    `bun:"creator_id"`
	CreatedAt     time.Time `bun:"created_at"`
	CreatorName   string    `bun:"creator_name"`
	CreatorEmail  string    `bun:"creator_email"`
	QuestionCount int       `bun:"question_count"`
	ResponseCount int       `bun:"response_count"`
}

func fromUser(u *models.User) *userRow {
	return &userRow{ID: u.ID, Email: u.Email, Name: u.Name, PassHash: u.PassHash, CreatedAt: u.CreatedAt.UTC()}
}

func (r *userRow) model() *models.User {
	return &models.User{ID: r.ID, Email: r.Email, Name: r.Name, PassHash: r.PassHash, CreatedAt: r.CreatedAt.UTC()}
}

func fromQuiz(q *models.Quiz) (*quizRow, []questionRow) {
	qr := &quizRow{ID: q.ID, Title: q.Title, Description: q.Description, CreatorID: q.CreatorID, CreatedAt: q.CreatedAt.UTC()}
	qs := make([]questionRow, 0, len(q.Questions))
	for _, qu := range q.Questions {
		opts := qu.Options
		if opts == nil {
			opts = []string{}
		}
		qs = append(qs, questionRow{
			ID:       qu.ID,
			QuizID:   q.ID,
			Text:     qu.Text,
			Type:     string(qu.Type),
			Options:  opts,
			Required: qu.Required,
			Position: qu.Order,
		})
	}
	return qr, qs
}

func toQuiz(qr *quizRow, qs []questionRow) *models.Quiz {
	q := &models.Quiz{
		ID:          qr.ID,
		Title:       qr.Title,
		Description: qr.Description,
		CreatorID:   qr.CreatorID,
		CreatedAt:   qr.CreatedAt.UTC(),
		Questions:   make([]*models.Question, 0, len(qs)),
	}
	for _, r := range qs {
		opts := r.Options
		if opts == nil {
			opts = []string{}
		}
		q.Questions = append(q.Questions, &models.Question{
			ID:       r.ID,
			QuizID:   r.QuizID,
			Text:     r.Text,
			Type:     models.QuestionType(r.Type),
			Options:  opts,
			Required: r.Required,
			Order:    r.Position,
		})
	}
	return q
}

func (r *summaryRow) model() models.QuizSummary {
	return models.QuizSummary{
		Quiz: &models.Quiz{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			CreatorID:   r.CreatorID,
			CreatedAt:   r.CreatedAt.UTC(),
		},
		CreatorName:   (&models.User{Name: r.CreatorName, Email: r.CreatorEmail}).DisplayName(),
		QuestionCount: r.QuestionCount,
		ResponseCount: r.ResponseCount,
	}
}

func fromResponse(r *models.Response) (*responseRow, []answerRow) {
	rr := &responseRow{
		ID:             r.ID,
		QuizID:         r.QuizID,
		SubmitterName:  r.SubmitterName,
		SubmitterEmail: r.SubmitterEmail,
		SubmittedAt:    r.SubmittedAt.UTC(),
	}
	as := make([]answerRow, 0, len(r.Answers))
	for _, a := range r.Answers {
		as = append(as, answerRow{ID: a.ID, ResponseID: r.ID, QuestionID: a.QuestionID, Value: a.Value})
	}
	return rr, as
}
