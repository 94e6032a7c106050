package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/soaringjerry/quizly/internal/models"
)

const (
	maxTitleLen     = 200
	minQuestions    = 2
	minChoiceOption = 2
)

// QuizService authors quizzes and serves their owner and public views.
type QuizService struct {
	store   QuizStore
	quizzes QuizReader
	guard   *OwnershipGuard
	now     func() time.Time
	idGen   func() string
}

// NewQuizService binds the service to store. Quiz schema reads go through
// quizzes when it is non-nil (e.g. a cache in front of the store).
func NewQuizService(store QuizStore, quizzes QuizReader) *QuizService {
	if quizzes == nil {
		quizzes = store
	}
	return &QuizService{
		store:   store,
		quizzes: quizzes,
		guard:   NewOwnershipGuard(quizzes),
		now:     func() time.Time { return time.Now().UTC() },
		idGen:   uuid.NewString,
	}
}

// CreateQuiz validates the whole request before writing anything, then stores
// the quiz and its questions as one unit. Question order follows submission order.
func (s *QuizService) CreateQuiz(ctx context.Context, id models.Identity, in CreateQuizInput) (*models.Quiz, error) {
	if id.UserID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, NewValidationError(ReasonInvalidTitle, "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, NewValidationError(ReasonInvalidTitle, "title too long")
	}
	if len(in.Questions) < minQuestions {
		return nil, NewValidationError(ReasonTooFewQuestions, "at least 2 questions are required")
	}

	quiz := &models.Quiz{
		ID:          s.idGen(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		CreatorID:   id.UserID,
		CreatedAt:   s.now(),
		Questions:   make([]*models.Question, 0, len(in.Questions)),
	}
	for i, qi := range in.Questions {
		q, err := buildQuestion(i, qi)
		if err != nil {
			return nil, err
		}
		q.ID = s.idGen()
		q.QuizID = quiz.ID
		quiz.Questions = append(quiz.Questions, q)
	}

	if err := s.store.InsertQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("insert quiz: %w", err)
	}
	s.store.AddAudit(ctx, models.AuditEntry{Time: quiz.CreatedAt, Actor: id.UserID, Action: "quiz.create", Target: quiz.ID, Note: strconv.Itoa(len(quiz.Questions))})
	return quiz, nil
}

func buildQuestion(idx int, in QuestionInput) (*models.Question, error) {
	text := strings.TrimSpace(in.Text)
	label := fmt.Sprintf("question %d", idx+1)
	if text == "" {
		return nil, NewValidationError(ReasonInvalidQuestion, label+": text is required", label)
	}
	q := &models.Question{
		Text:     text,
		Type:     in.Type,
		Options:  []string{},
		Required: in.Required == nil || *in.Required,
		Order:    idx,
	}
	switch in.Type {
	case models.QuestionText:
	case models.QuestionSingleChoice:
		seen := map[string]bool{}
		for _, opt := range in.Options {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				continue
			}
			if seen[opt] {
				return nil, NewValidationError(ReasonInvalidOptions, fmt.Sprintf("%q: duplicate option %q", text, opt), text)
			}
			seen[opt] = true
			q.Options = append(q.Options, opt)
		}
		if len(q.Options) < minChoiceOption {
			return nil, NewValidationError(ReasonInvalidOptions, fmt.Sprintf("%q: single choice questions need at least 2 options", text), text)
		}
	default:
		return nil, NewValidationError(ReasonInvalidQuestion, fmt.Sprintf("%s: unsupported type %q", label, in.Type), label)
	}
	return q, nil
}

// ListQuizzesFor returns the caller's quizzes, newest first.
func (s *QuizService) ListQuizzesFor(ctx context.Context, id models.Identity) ([]models.QuizSummary, error) {
	if id.UserID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	list, err := s.store.ListQuizzesByCreator(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	sortNewestFirst(list)
	return list, nil
}

// GetOwnedQuiz returns a quiz with its questions after the ownership check.
func (s *QuizService) GetOwnedQuiz(ctx context.Context, id models.Identity, quizID string) (*models.Quiz, error) {
	return s.guard.AuthorizeQuizAccess(ctx, id, quizID)
}

func (s *QuizService) ListPublicQuizzes(ctx context.Context) ([]PublicQuiz, error) {
	list, err := s.store.ListAllQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list public quizzes: %w", err)
	}
	sortNewestFirst(list)
	out := make([]PublicQuiz, 0, len(list))
	for _, sum := range list {
		out = append(out, PublicQuiz{
			ID:            sum.Quiz.ID,
			Title:         sum.Quiz.Title,
			Description:   sum.Quiz.Description,
			CreatedAt:     sum.Quiz.CreatedAt.UTC().Format(time.RFC3339),
			CreatorName:   sum.CreatorName,
			QuestionCount: sum.QuestionCount,
			ResponseCount: sum.ResponseCount,
		})
	}
	return out, nil
}

func (s *QuizService) GetPublicQuiz(ctx context.Context, quizID string) (*PublicQuiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, newQuizNotFoundError()
	}
	creator, err := s.store.GetUser(ctx, quiz.CreatorID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountResponses(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	return &PublicQuiz{
		ID:            quiz.ID,
		Title:         quiz.Title,
		Description:   quiz.Description,
		CreatorName:   creator.DisplayName(),
		Questions:     quiz.Questions,
		QuestionCount: len(quiz.Questions),
		ResponseCount: count,
	}, nil
}

func sortNewestFirst(list []models.QuizSummary) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Quiz.CreatedAt.After(list[j].Quiz.CreatedAt)
	})
}
