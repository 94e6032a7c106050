package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soaringjerry/quizly/internal/models"
)

// SubmitRequest transports an anonymous submission into the service layer.
// Answers is the raw JSON array exactly as received.
type SubmitRequest struct {
	QuizID         string
	Answers        json.RawMessage
	SubmitterName  string
	SubmitterEmail string
}

// SubmitResult is returned once the response and its answers are committed.
type SubmitResult struct {
	ResponseID   string
	AnswersCount int
	SubmittedAt  time.Time
}

// ResponseService validates submissions against a quiz schema, persists accepted
// ones atomically and serves the owner-only response listing.
type ResponseService struct {
	store         ResponseStore
	quizzes       QuizReader
	guard         *OwnershipGuard
	now           func() time.Time
	idGenerator   func() string
	strictChoices bool
}

// NewResponseService constructs a service bound to the provided persistence
// interface. Quiz schema reads go through quizzes when it is non-nil.
func NewResponseService(store ResponseStore, quizzes QuizReader) *ResponseService {
	if quizzes == nil {
		quizzes = store
	}
	return &ResponseService{
		store:       store,
		quizzes:     quizzes,
		guard:       NewOwnershipGuard(quizzes),
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
}

// SetStrictChoices toggles option-membership checks for SINGLE_CHOICE answers.
// Off by default: any non-empty value is accepted.
func (s *ResponseService) SetStrictChoices(on bool) {
	s.strictChoices = on
}

// Submit runs the submission workflow. Validation short-circuits on the first
// failure and nothing is written for a rejected submission.
func (s *ResponseService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if s.store == nil {
		return nil, errors.New("response service store is nil")
	}

	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if quiz == nil {
		return nil, newQuizNotFoundError()
	}

	answers, err := decodeAnswers(req.Answers)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(quiz, answers); err != nil {
		return nil, err
	}
	if err := s.checkAnswers(quiz, answers); err != nil {
		return nil, err
	}

	resp := &models.Response{
		ID:             s.idGenerator(),
		QuizID:         quiz.ID,
		SubmitterName:  strings.TrimSpace(req.SubmitterName),
		SubmitterEmail: strings.TrimSpace(req.SubmitterEmail),
		SubmittedAt:    s.now(),
		Answers:        make([]*models.Answer, 0, len(answers)),
	}
	for _, a := range answers {
		resp.Answers = append(resp.Answers, &models.Answer{
			ID:         s.idGenerator(),
			ResponseID: resp.ID,
			QuestionID: a.QuestionID,
			Value:      strings.TrimSpace(a.Value),
		})
	}

	if err := s.store.InsertResponse(ctx, resp); err != nil {
		return nil, fmt.Errorf("insert response: %w", err)
	}
	s.store.AddAudit(ctx, models.AuditEntry{Time: resp.SubmittedAt, Actor: "anonymous", Action: "response.submit", Target: quiz.ID, Note: resp.ID})

	return &SubmitResult{
		ResponseID:   resp.ID,
		AnswersCount: len(resp.Answers),
		SubmittedAt:  resp.SubmittedAt,
	}, nil
}

// checkRequired looks at presence only; empty values are caught by checkAnswers.
func checkRequired(quiz *models.Quiz, answers []AnswerInput) error {
	answered := make(map[string]bool, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = true
	}
	var missing []string
	for _, q := range quiz.Questions {
		if q.Required && !answered[q.ID] {
			missing = append(missing, q.Text)
		}
	}
	if len(missing) > 0 {
		return NewValidationError(ReasonMissingRequired, "please answer all required questions", missing...)
	}
	return nil
}

func (s *ResponseService) checkAnswers(quiz *models.Quiz, answers []AnswerInput) error {
	for i, a := range answers {
		if strings.TrimSpace(a.QuestionID) == "" {
			return NewValidationError(ReasonInvalidAnswer, "each answer must have questionId and a non-empty value", strconv.Itoa(i))
		}
		if !a.HasValue || strings.TrimSpace(a.Value) == "" {
			return NewValidationError(ReasonInvalidAnswer, "each answer must have questionId and a non-empty value", a.QuestionID)
		}
	}

	byID := make(map[string]*models.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		byID[q.ID] = q
	}
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return NewValidationError(ReasonUnknownQuestion, "answer references a question outside this quiz", a.QuestionID)
		}
		if seen[a.QuestionID] {
			return NewValidationError(ReasonDuplicateAnswer, "a question may be answered only once", a.QuestionID)
		}
		seen[a.QuestionID] = true
		if s.strictChoices && q.Type == models.QuestionSingleChoice && !containsOption(q.Options, strings.TrimSpace(a.Value)) {
			return NewValidationError(ReasonInvalidOption, fmt.Sprintf("%q is not an option of %q", strings.TrimSpace(a.Value), q.Text), a.QuestionID)
		}
	}
	return nil
}

func containsOption(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// QuizRef identifies the quiz a listing belongs to.
type QuizRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// QuestionRef is the question context joined onto each answer.
type QuestionRef struct {
	ID      string              `json:"id"`
	Text    string              `json:"text"`
	Type    models.QuestionType `json:"type"`
	Options []string            `json:"options"`
}

type AnswerView struct {
	ID         string       `json:"id"`
	ResponseID string       `json:"responseId"`
	QuestionID string       `json:"questionId"`
	Value      string       `json:"value"`
	Question   *QuestionRef `json:"question,omitempty"`
}

type ResponseView struct {
	ID             string       `json:"id"`
	QuizID         string       `json:"quizId"`
	SubmitterName  *string      `json:"submitterName"`
	SubmitterEmail *string      `json:"submitterEmail"`
	SubmittedAt    time.Time    `json:"submittedAt"`
	Answers        []AnswerView `json:"answers"`
}

// ResponseListing is the owner-only view of every response to a quiz.
type ResponseListing struct {
	Quiz           QuizRef            `json:"quiz"`
	Questions      []*models.Question `json:"questions"`
	Responses      []ResponseView     `json:"responses"`
	TotalResponses int                `json:"totalResponses"`
}

// ListResponses returns all responses of a quiz owned by id, newest first.
// Responses are read by the id of the quiz the guard returned.
func (s *ResponseService) ListResponses(ctx context.Context, id models.Identity, quizID string) (*ResponseListing, error) {
	quiz, err := s.guard.AuthorizeQuizAccess(ctx, id, quizID)
	if err != nil {
		return nil, err
	}
	rs, err := s.store.ListResponsesByQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].SubmittedAt.After(rs[j].SubmittedAt) })

	refs := make(map[string]*QuestionRef, len(quiz.Questions))
	for _, q := range quiz.Questions {
		refs[q.ID] = &QuestionRef{ID: q.ID, Text: q.Text, Type: q.Type, Options: q.Options}
	}
	out := &ResponseListing{
		Quiz:           QuizRef{ID: quiz.ID, Title: quiz.Title},
		Questions:      quiz.Questions,
		Responses:      make([]ResponseView, 0, len(rs)),
		TotalResponses: len(rs),
	}
	for _, r := range rs {
		view := ResponseView{
			ID:             r.ID,
			QuizID:         r.QuizID,
			SubmitterName:  nullable(r.SubmitterName),
			SubmitterEmail: nullable(r.SubmitterEmail),
			SubmittedAt:    r.SubmittedAt,
			Answers:        make([]AnswerView, 0, len(r.Answers)),
		}
		for _, a := range r.Answers {
			view.Answers = append(view.Answers, AnswerView{
				ID:         a.ID,
				ResponseID: a.ResponseID,
				QuestionID: a.QuestionID,
				Value:      a.Value,
				Question:   refs[a.QuestionID],
			})
		}
		out.Responses = append(out.Responses, view)
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
