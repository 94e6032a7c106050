package services

import (
	"context"
	"errors"
	"testing"

	"github.com/soaringjerry/quizly/internal/models"
)

type stubQuizReader struct {
	quizzes map[string]*models.Quiz
	err     error
	calls   int
}

func (s *stubQuizReader) GetQuiz(_ context.Context, id string) (*models.Quiz, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.quizzes[id], nil
}

func TestAuthorizeQuizAccess(t *testing.T) {
	ctx := context.Background()
	reader := &stubQuizReader{quizzes: map[string]*models.Quiz{
		"Q1": {ID: "Q1", CreatorID: "owner"},
	}}
	guard := NewOwnershipGuard(reader)

	quiz, err := guard.AuthorizeQuizAccess(ctx, models.Identity{UserID: "owner"}, "Q1")
	if err != nil {
		t.Fatalf("owner access returned error: %v", err)
	}
	if quiz.ID != "Q1" {
		t.Fatalf("quiz id = %q, want Q1", quiz.ID)
	}

	_, err = guard.AuthorizeQuizAccess(ctx, models.Identity{UserID: "intruder"}, "Q1")
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	for _, caller := range []string{"owner", "intruder"} {
		_, err = guard.AuthorizeQuizAccess(ctx, models.Identity{UserID: caller}, "missing")
		if !errors.Is(err, ErrQuizNotFound) {
			t.Fatalf("caller %s: expected not found, got %v", caller, err)
		}
	}
}

func TestAuthorizeQuizAccessRequiresIdentity(t *testing.T) {
	reader := &stubQuizReader{quizzes: map[string]*models.Quiz{"Q1": {ID: "Q1", CreatorID: "owner"}}}
	guard := NewOwnershipGuard(reader)

	_, err := guard.AuthorizeQuizAccess(context.Background(), models.Identity{}, "Q1")
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if reader.calls != 0 {
		t.Fatalf("store consulted %d times before identity check", reader.calls)
	}
}

func TestAuthorizeQuizAccessStoreError(t *testing.T) {
	boom := errors.New("boom")
	guard := NewOwnershipGuard(&stubQuizReader{err: boom})
	if _, err := guard.AuthorizeQuizAccess(context.Background(), models.Identity{UserID: "u"}, "Q1"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
