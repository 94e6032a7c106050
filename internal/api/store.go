package api

import (
	"context"
	"errors"
	"sync"

	"github.com/soaringjerry/quizly/internal/models"
	"github.com/soaringjerry/quizly/internal/services"
)

// MemoryStore keeps everything in process memory. Inserts of a quiz or a
// response happen under a single write lock, so readers never observe a
// partially written quiz or submission.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*models.User
	usersByEmail map[string]*models.User
	quizzes      map[string]*models.Quiz
	responses    []*models.Response
	audit        []models.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        map[string]*models.User{},
		usersByEmail: map[string]*models.User{},
		quizzes:      map[string]*models.Quiz{},
		responses:    []*models.Response{},
		audit:        []models.AuditEntry{},
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) InsertUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usersByEmail[u.Email]; ok {
		return services.ErrDuplicateEmail
	}
	cp := *u
	s.users[u.ID] = &cp
	s.usersByEmail[u.Email] = &cp
	return nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usersByEmail[email], nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id], nil
}

func (s *MemoryStore) InsertQuiz(_ context.Context, q *models.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[q.ID]; ok {
		return errors.New("memory store: quiz id already exists")
	}
	s.quizzes[q.ID] = q
	return nil
}

func (s *MemoryStore) GetQuiz(_ context.Context, id string) (*models.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quizzes[id], nil
}

func (s *MemoryStore) summarize(q *models.Quiz) models.QuizSummary {
	n := 0
	for _, r := range s.responses {
		if r.QuizID == q.ID {
			n++
		}
	}
	return models.QuizSummary{
		Quiz:          q,
		CreatorName:   s.users[q.CreatorID].DisplayName(),
		QuestionCount: len(q.Questions),
		ResponseCount: n,
	}
}

func (s *MemoryStore) ListQuizzesByCreator(_ context.Context, creatorID string) ([]models.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.QuizSummary{}
	for _, q := range s.quizzes {
		if q.CreatorID == creatorID {
			out = append(out, s.summarize(q))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAllQuizzes(_ context.Context) ([]models.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.QuizSummary, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		out = append(out, s.summarize(q))
	}
	return out, nil
}

func (s *MemoryStore) CountResponses(_ context.Context, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.responses {
		if r.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) InsertResponse(_ context.Context, r *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[r.QuizID]; !ok {
		return errors.New("memory store: response references unknown quiz")
	}
	s.responses = append(s.responses, r)
	return nil
}

func (s *MemoryStore) ListResponsesByQuiz(_ context.Context, quizID string) ([]*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Response, 0)
	// newest appended last
	for i := len(s.responses) - 1; i >= 0; i-- {
		if s.responses[i].QuizID == quizID {
			out = append(out, s.responses[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) AddAudit(_ context.Context, e models.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
}

func (s *MemoryStore) ListAudit() []models.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditEntry(nil), s.audit...)
}
