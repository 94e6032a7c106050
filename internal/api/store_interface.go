package api

import (
	"context"

	"github.com/soaringjerry/quizly/internal/services"
)

// Store is the full persistence surface behind the router. The in-memory store,
// the SQLite store and the Postgres store all satisfy it.
type Store interface {
	services.QuizStore
	services.ResponseStore
	services.AuthStore
	Ping(ctx context.Context) error
}

var _ Store = (*MemoryStore)(nil)
