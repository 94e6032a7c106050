package services

import (
	"context"
	"errors"

	"github.com/soaringjerry/quizly/internal/models"
)

// stubStore keeps rows in maps and implements every store interface of the package.
type stubStore struct {
	users     map[string]*models.User
	quizzes   map[string]*models.Quiz
	responses []*models.Response
	audit     []models.AuditEntry

	failInsert error
}

func newStubStore() *stubStore {
	return &stubStore{users: map[string]*models.User{}, quizzes: map[string]*models.Quiz{}}
}

func (s *stubStore) GetQuiz(_ context.Context, id string) (*models.Quiz, error) {
	return s.quizzes[id], nil
}

func (s *stubStore) InsertQuiz(_ context.Context, q *models.Quiz) error {
	if s.failInsert != nil {
		return s.failInsert
	}
	if _, ok := s.quizzes[q.ID]; ok {
		return errors.New("duplicate quiz")
	}
	s.quizzes[q.ID] = q
	return nil
}

func (s *stubStore) summaries(match func(*models.Quiz) bool) []models.QuizSummary {
	var out []models.QuizSummary
	for _, q := range s.quizzes {
		if !match(q) {
			continue
		}
		n, _ := s.CountResponses(context.Background(), q.ID)
		out = append(out, models.QuizSummary{
			Quiz:          q,
			CreatorName:   s.users[q.CreatorID].DisplayName(),
			QuestionCount: len(q.Questions),
			ResponseCount: n,
		})
	}
	return out
}

func (s *stubStore) ListQuizzesByCreator(_ context.Context, creatorID string) ([]models.QuizSummary, error) {
	return s.summaries(func(q *models.Quiz) bool { return q.CreatorID == creatorID }), nil
}

func (s *stubStore) ListAllQuizzes(_ context.Context) ([]models.QuizSummary, error) {
	return s.summaries(func(*models.Quiz) bool { return true }), nil
}

func (s *stubStore) CountResponses(_ context.Context, quizID string) (int, error) {
	n := 0
	for _, r := range s.responses {
		if r.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

func (s *stubStore) GetUser(_ context.Context, id string) (*models.User, error) {
	return s.users[id], nil
}

func (s *stubStore) InsertResponse(_ context.Context, r *models.Response) error {
	if s.failInsert != nil {
		return s.failInsert
	}
	s.responses = append(s.responses, r)
	return nil
}

func (s *stubStore) ListResponsesByQuiz(_ context.Context, quizID string) ([]*models.Response, error) {
	var out []*models.Response
	for _, r := range s.responses {
		if r.QuizID == quizID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) AddAudit(_ context.Context, e models.AuditEntry) {
	s.audit = append(s.audit, e)
}

func (s *stubStore) answerCount() int {
	n := 0
	for _, r := range s.responses {
		n += len(r.Answers)
	}
	return n
}
