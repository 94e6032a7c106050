package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/quizly/internal/models"
)

type countingLoader struct {
	mu      sync.Mutex
	quizzes map[string]*models.Quiz
	err     error
	calls   int
}

func (l *countingLoader) GetQuiz(_ context.Context, id string) (*models.Quiz, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.quizzes[id], nil
}

func sampleQuiz() *models.Quiz {
	return &models.Quiz{
		ID:        "quiz-1",
		Title:     "Sample",
		CreatorID: "U1",
		CreatedAt: time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC),
		Questions: []*models.Question{
			{ID: "q1", QuizID: "quiz-1", Text: "Name?", Type: models.QuestionText, Options: []string{}, Required: true, Order: 0},
			{ID: "q2", QuizID: "quiz-1", Text: "Color?", Type: models.QuestionSingleChoice, Options: []string{"Red", "Blue"}, Order: 1},
		},
	}
}

func newCache(t *testing.T, loader *countingLoader, ttl time.Duration) (*QuizCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQuizCache(client, loader, ttl), mr
}

func TestQuizCacheReadThrough(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]*models.Quiz{"quiz-1": sampleQuiz()}}
	c, mr := newCache(t, loader, time.Minute)
	ctx := context.Background()

	q, err := c.GetQuiz(ctx, "quiz-1")
	if err != nil || q == nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:quiz-1:schema") {
		t.Fatalf("schema not written to redis")
	}
	if ttl := mr.TTL("quiz:quiz-1:schema"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("ttl with jitter = %v", ttl)
	}

	cached, err := c.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Questions) != 2 || cached.Questions[1].Options[1] != "Blue" || cached.CreatorID != "U1" {
		t.Fatalf("cached quiz lost data: %+v", cached)
	}

	if err := c.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = c.GetQuiz(ctx, "quiz-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, calls=%d", loader.calls)
	}
}

func TestQuizCacheMissesAreNotCached(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]*models.Quiz{}}
	c, mr := newCache(t, loader, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		q, err := c.GetQuiz(ctx, "missing")
		if err != nil || q != nil {
			t.Fatalf("missing quiz = %+v, %v", q, err)
		}
	}
	if loader.calls != 2 || mr.Exists("quiz:missing:schema") {
		t.Fatalf("miss was cached: calls=%d", loader.calls)
	}

	boom := errors.New("db down")
	loader.err = boom
	if _, err := c.GetQuiz(ctx, "quiz-1"); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
}

func TestQuizCacheFallsBackWhenRedisDown(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]*models.Quiz{"quiz-1": sampleQuiz()}}
	c, mr := newCache(t, loader, time.Minute)
	mr.Close()

	q, err := c.GetQuiz(context.Background(), "quiz-1")
	if err != nil || q == nil || q.Title != "Sample" {
		t.Fatalf("fallback read = %+v, %v", q, err)
	}
}
