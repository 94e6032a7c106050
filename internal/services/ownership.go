package services

import (
	"context"

	"github.com/soaringjerry/quizly/internal/models"
)

// OwnershipGuard decides whether an identity may read private data of a quiz.
type OwnershipGuard struct {
	quizzes QuizReader
}

func NewOwnershipGuard(quizzes QuizReader) *OwnershipGuard {
	return &OwnershipGuard{quizzes: quizzes}
}

// AuthorizeQuizAccess returns the quiz when id owns it. Existence is checked
// before ownership so the outcome for a missing quiz is the same for every caller.
// Callers must use the returned quiz's ID for any follow-up reads.
func (g *OwnershipGuard) AuthorizeQuizAccess(ctx context.Context, id models.Identity, quizID string) (*models.Quiz, error) {
	if id.UserID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	quiz, err := g.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, newQuizNotFoundError()
	}
	if quiz.CreatorID != id.UserID {
		return nil, NewForbiddenError("you can only access your own quizzes")
	}
	return quiz, nil
}
