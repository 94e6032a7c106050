package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/soaringjerry/quizly/internal/models"
)

func newTestQuizService(store *stubStore) *QuizService {
	svc := NewQuizService(store, nil)
	n := 0
	svc.idGen = func() string { n++; return "id" + strconv.Itoa(n) }
	svc.now = func() time.Time { return time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC) }
	return svc
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func TestCreateQuizAssignsOrderAndCreator(t *testing.T) {
	store := newStubStore()
	svc := newTestQuizService(store)

	quiz, err := svc.CreateQuiz(context.Background(), models.Identity{UserID: "U1"}, CreateQuizInput{
		Title:       "  Favourites ",
		Description: "about you",
		Questions: []QuestionInput{
			{Text: "Name?", Type: models.QuestionText, Options: []string{"ignored"}, Required: boolPtr(true), Order: intPtr(7)},
			{Text: "Color?", Type: models.QuestionSingleChoice, Options: []string{"Red", " ", "Blue "}, Required: boolPtr(false), Order: intPtr(0)},
			{Text: "Why?", Type: models.QuestionText, Order: intPtr(-3)},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuiz returned error: %v", err)
	}
	if quiz.CreatorID != "U1" {
		t.Fatalf("creator = %q, want U1", quiz.CreatorID)
	}
	if quiz.Title != "Favourites" {
		t.Fatalf("title = %q", quiz.Title)
	}
	for i, q := range quiz.Questions {
		if q.Order != i {
			t.Fatalf("question %d order = %d", i, q.Order)
		}
		if q.QuizID != quiz.ID {
			t.Fatalf("question %d quiz id = %q", i, q.QuizID)
		}
	}
	if len(quiz.Questions[0].Options) != 0 {
		t.Fatalf("text question kept options: %v", quiz.Questions[0].Options)
	}
	if got := strings.Join(quiz.Questions[1].Options, ","); got != "Red,Blue" {
		t.Fatalf("choice options = %q, want Red,Blue", got)
	}
	if store.quizzes[quiz.ID] == nil {
		t.Fatalf("quiz not persisted")
	}
	if len(store.audit) != 1 || store.audit[0].Action != "quiz.create" {
		t.Fatalf("audit = %+v", store.audit)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	two := []QuestionInput{{Text: "A", Type: models.QuestionText}, {Text: "B", Type: models.QuestionText}}
	cases := []struct {
		name   string
		in     CreateQuizInput
		reason string
		detail string
	}{
		{"blank title", CreateQuizInput{Title: "  ", Questions: two}, ReasonInvalidTitle, ""},
		{"long title", CreateQuizInput{Title: strings.Repeat("x", 201), Questions: two}, ReasonInvalidTitle, ""},
		{"no questions", CreateQuizInput{Title: "T"}, ReasonTooFewQuestions, ""},
		{"one question", CreateQuizInput{Title: "T", Questions: two[:1]}, ReasonTooFewQuestions, ""},
		{"blank text", CreateQuizInput{Title: "T", Questions: []QuestionInput{two[0], {Text: " ", Type: models.QuestionText}}}, ReasonInvalidQuestion, "question 2"},
		{"bad type", CreateQuizInput{Title: "T", Questions: []QuestionInput{two[0], {Text: "C", Type: "MULTI"}}}, ReasonInvalidQuestion, "question 2"},
		{"one option", CreateQuizInput{Title: "T", Questions: []QuestionInput{two[0], {Text: "Pick", Type: models.QuestionSingleChoice, Options: []string{"only", "", "  "}}}}, ReasonInvalidOptions, "Pick"},
		{"duplicate option", CreateQuizInput{Title: "T", Questions: []QuestionInput{two[0], {Text: "Pick", Type: models.QuestionSingleChoice, Options: []string{"a", "a "}}}}, ReasonInvalidOptions, "Pick"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStubStore()
			svc := newTestQuizService(store)
			_, err := svc.CreateQuiz(context.Background(), models.Identity{UserID: "U1"}, tc.in)
			se, ok := AsServiceError(err)
			if !ok || se.Code != ErrorInvalid || se.Reason != tc.reason {
				t.Fatalf("err = %v, want reason %s", err, tc.reason)
			}
			if tc.detail != "" && (len(se.Detail) != 1 || se.Detail[0] != tc.detail) {
				t.Fatalf("detail = %v, want [%s]", se.Detail, tc.detail)
			}
			if len(store.quizzes) != 0 {
				t.Fatalf("quiz persisted despite validation failure")
			}
		})
	}
}

func TestCreateQuizTitleLimitCountsRunes(t *testing.T) {
	svc := newTestQuizService(newStubStore())
	two := []QuestionInput{{Text: "A", Type: models.QuestionText}, {Text: "B", Type: models.QuestionText}}
	if _, err := svc.CreateQuiz(context.Background(), models.Identity{UserID: "U1"}, CreateQuizInput{Title: strings.Repeat("é", 200), Questions: two}); err != nil {
		t.Fatalf("200 rune title rejected: %v", err)
	}
}

func TestCreateQuizRequiresIdentityAndSurfacesStoreErrors(t *testing.T) {
	store := newStubStore()
	svc := newTestQuizService(store)
	two := []QuestionInput{{Text: "A", Type: models.QuestionText}, {Text: "B", Type: models.QuestionText}}

	_, err := svc.CreateQuiz(context.Background(), models.Identity{}, CreateQuizInput{Title: "T", Questions: two})
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	boom := errors.New("disk full")
	store.failInsert = boom
	if _, err := svc.CreateQuiz(context.Background(), models.Identity{UserID: "U1"}, CreateQuizInput{Title: "T", Questions: two}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if len(store.audit) != 0 {
		t.Fatalf("audit written for failed insert")
	}
}

func TestListQuizzesForReturnsOwnNewestFirst(t *testing.T) {
	store := newStubStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.quizzes["old"] = &models.Quiz{ID: "old", CreatorID: "U1", CreatedAt: base, Questions: []*models.Question{{ID: "q"}}}
	store.quizzes["new"] = &models.Quiz{ID: "new", CreatorID: "U1", CreatedAt: base.Add(time.Hour)}
	store.quizzes["other"] = &models.Quiz{ID: "other", CreatorID: "U2", CreatedAt: base.Add(2 * time.Hour)}
	store.responses = []*models.Response{{ID: "r1", QuizID: "old"}, {ID: "r2", QuizID: "old"}}
	svc := NewQuizService(store, nil)

	list, err := svc.ListQuizzesFor(context.Background(), models.Identity{UserID: "U1"})
	if err != nil {
		t.Fatalf("ListQuizzesFor returned error: %v", err)
	}
	if len(list) != 2 || list[0].Quiz.ID != "new" || list[1].Quiz.ID != "old" {
		t.Fatalf("unexpected list order: %+v", list)
	}
	if list[1].QuestionCount != 1 || list[1].ResponseCount != 2 {
		t.Fatalf("counts = (%d,%d), want (1,2)", list[1].QuestionCount, list[1].ResponseCount)
	}
}

func TestPublicQuizViews(t *testing.T) {
	store := newStubStore()
	store.users["U1"] = &models.User{ID: "U1", Email: "ann@example.com"}
	store.users["U2"] = &models.User{ID: "U2", Email: "bob@example.com", Name: "Bob"}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.quizzes["A"] = &models.Quiz{ID: "A", Title: "Alpha", CreatorID: "U1", CreatedAt: base,
		Questions: []*models.Question{{ID: "q1", Text: "Name?", Type: models.QuestionText, Required: true}}}
	store.quizzes["B"] = &models.Quiz{ID: "B", Title: "Beta", CreatorID: "U2", CreatedAt: base.Add(time.Minute)}
	store.responses = []*models.Response{{ID: "r1", QuizID: "A"}}
	svc := NewQuizService(store, nil)

	list, err := svc.ListPublicQuizzes(context.Background())
	if err != nil {
		t.Fatalf("ListPublicQuizzes returned error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "B" || list[0].CreatorName != "Bob" {
		t.Fatalf("unexpected public list: %+v", list)
	}
	if list[1].CreatorName != "ann@example.com" || list[1].ResponseCount != 1 {
		t.Fatalf("expected email fallback and count: %+v", list[1])
	}

	pq, err := svc.GetPublicQuiz(context.Background(), "A")
	if err != nil {
		t.Fatalf("GetPublicQuiz returned error: %v", err)
	}
	if pq.QuestionCount != 1 || pq.ResponseCount != 1 || pq.Questions[0].ID != "q1" {
		t.Fatalf("unexpected public quiz: %+v", pq)
	}
	if _, err := svc.GetPublicQuiz(context.Background(), "nope"); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestGetOwnedQuizUsesGuard(t *testing.T) {
	store := newStubStore()
	store.quizzes["A"] = &models.Quiz{ID: "A", CreatorID: "U1"}
	svc := NewQuizService(store, nil)

	if _, err := svc.GetOwnedQuiz(context.Background(), models.Identity{UserID: "U1"}, "A"); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	_, err := svc.GetOwnedQuiz(context.Background(), models.Identity{UserID: "U2"}, "A")
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateQuizRequiredDefaultsToTrue(t *testing.T) {
	store := newStubStore()
	svc := newTestQuizService(store)
	quiz, err := svc.CreateQuiz(context.Background(), models.Identity{UserID: "U1"}, CreateQuizInput{
		Title: "T",
		Questions: []QuestionInput{
			{Text: "Name?", Type: models.QuestionText},
			{Text: "Color?", Type: models.QuestionSingleChoice, Options: []string{"Red", "Blue"}},
			{Text: "Why?", Type: models.QuestionText, Required: boolPtr(false)},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuiz returned error: %v", err)
	}
	if !quiz.Questions[0].Required || !quiz.Questions[1].Required || quiz.Questions[2].Required {
		t.Fatalf("required flags = %v %v %v, want true true false",
			quiz.Questions[0].Required, quiz.Questions[1].Required, quiz.Questions[2].Required)
	}

	responses := newTestResponseService(store)
	_, err = responses.Submit(context.Background(), SubmitRequest{QuizID: quiz.ID, Answers: []byte(`[]`)})
	se, ok := AsServiceError(err)
	if !ok || se.Reason != ReasonMissingRequired || strings.Join(se.Detail, "|") != "Name?|Color?" {
		t.Fatalf("empty submission err = %v, want missing-required for Name? and Color?", err)
	}
}
