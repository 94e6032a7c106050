package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/soaringjerry/quizly/internal/models"
	"github.com/soaringjerry/quizly/internal/services"
)

// QuizCache is a read-through Redis cache for quiz schemas (quiz plus ordered
// questions). Quizzes are immutable once created, so entries only expire by TTL.
// Response counts are never cached.
type QuizCache struct {
	client *redis.Client
	loader services.QuizReader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

var _ services.QuizReader = (*QuizCache)(nil)

func NewQuizCache(client *redis.Client, loader services.QuizReader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) key(quizID string) string {
	return "quiz:" + quizID + ":schema"
}

// GetQuiz serves from Redis and falls back to the loader on a miss. Missing
// quizzes are not cached. Redis failures degrade to loader reads.
func (c *QuizCache) GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error) {
	if q, ok := c.lookup(ctx, quizID); ok {
		return q, nil
	}
	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		if q, ok := c.lookup(ctx, quizID); ok {
			return q, nil
		}
		q, err := c.loader.GetQuiz(ctx, quizID)
		if err != nil || q == nil {
			return q, err
		}
		c.store(ctx, q)
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	q, _ := result.(*models.Quiz)
	return q, nil
}

func (c *QuizCache) lookup(ctx context.Context, quizID string) (*models.Quiz, bool) {
	raw, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("quiz cache: get %s: %v", quizID, err)
		}
		return nil, false
	}
	var q models.Quiz
	if err := json.Unmarshal(raw, &q); err != nil {
		log.Printf("quiz cache: decode %s: %v", quizID, err)
		return nil, false
	}
	return &q, true
}

func (c *QuizCache) store(ctx context.Context, q *models.Quiz) {
	raw, err := json.Marshal(q)
	if err != nil {
		log.Printf("quiz cache: encode %s: %v", q.ID, err)
		return
	}
	if err := c.client.Set(ctx, c.key(q.ID), raw, c.ttlWithJitter()).Err(); err != nil {
		log.Printf("quiz cache: set %s: %v", q.ID, err)
	}
}

// Invalidate drops a cached schema.
func (c *QuizCache) Invalidate(ctx context.Context, quizID string) error {
	return c.client.Del(ctx, c.key(quizID)).Err()
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
