package services

import (
	"context"

	"github.com/soaringjerry/quizly/internal/models"
)

// QuizReader loads a quiz together with its questions ordered by position.
// A missing quiz is reported as (nil, nil).
type QuizReader interface {
	GetQuiz(ctx context.Context, id string) (*models.Quiz, error)
}

// QuizStore is the persistence surface used by QuizService.
type QuizStore interface {
	QuizReader
	// InsertQuiz stores the quiz and all of its questions in one transaction.
	InsertQuiz(ctx context.Context, q *models.Quiz) error
	ListQuizzesByCreator(ctx context.Context, creatorID string) ([]models.QuizSummary, error)
	ListAllQuizzes(ctx context.Context) ([]models.QuizSummary, error)
	CountResponses(ctx context.Context, quizID string) (int, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	AddAudit(ctx context.Context, entry models.AuditEntry)
}

// ResponseStore is the persistence surface used by ResponseService.
type ResponseStore interface {
	QuizReader
	// InsertResponse stores the response and all of its answers in one transaction.
	InsertResponse(ctx context.Context, r *models.Response) error
	// ListResponsesByQuiz returns responses with answers, newest submission first.
	ListResponsesByQuiz(ctx context.Context, quizID string) ([]*models.Response, error)
	AddAudit(ctx context.Context, entry models.AuditEntry)
}

// AuthStore is the persistence surface used by AuthService.
type AuthStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	InsertUser(ctx context.Context, u *models.User) error
}

// QuestionInput is one question of a quiz creation request. Order is ignored;
// an omitted Required means the question is required.
type QuestionInput struct {
	Text     string              `json:"text"`
	Type     models.QuestionType `json:"type"`
	Options  []string            `json:"options"`
	Required *bool               `json:"required"`
	Order    *int                `json:"order,omitempty"`
}

// CreateQuizInput carries a sanitized quiz creation request into the service layer.
type CreateQuizInput struct {
	Title       string
	Description string
	Questions   []QuestionInput
}

// PublicQuiz is the anonymous view of a quiz.
type PublicQuiz struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	CreatedAt     string             `json:"createdAt,omitempty"`
	CreatorName   string             `json:"creatorName"`
	Questions     []*models.Question `json:"questions,omitempty"`
	QuestionCount int                `json:"questionCount"`
	ResponseCount int                `json:"responseCount"`
}
