package api

import (
	"time"

	"github.com/soaringjerry/quizly/internal/models"
	"github.com/soaringjerry/quizly/internal/services"
)

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func userView(u *models.User) userPayload {
	return userPayload{ID: u.ID, Email: u.Email, Name: u.Name}
}

func authPayload(res *services.AuthResult) map[string]any {
	return map[string]any{"token": res.Token, "user": userView(res.User)}
}

type quizSummaryView struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	QuestionCount int       `json:"questionCount"`
	ResponseCount int       `json:"responseCount"`
}

func summaryView(s models.QuizSummary) quizSummaryView {
	return quizSummaryView{
		ID:            s.Quiz.ID,
		Title:         s.Quiz.Title,
		Description:   s.Quiz.Description,
		CreatedAt:     s.Quiz.CreatedAt,
		QuestionCount: s.QuestionCount,
		ResponseCount: s.ResponseCount,
	}
}
