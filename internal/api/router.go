package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/soaringjerry/quizly/internal/middleware"
	"github.com/soaringjerry/quizly/internal/models"
	"github.com/soaringjerry/quizly/internal/services"
)

// Options wires a Router. QuizCache, when set, serves quiz schema reads in
// front of Store.
type Options struct {
	Store         Store
	QuizCache     services.QuizReader
	Verifier      *middleware.Verifier
	TokenTTL      time.Duration
	StrictChoices bool
	CORSOrigins   []string
	Commit        string
	BuildTime     string
}

type Router struct {
	store     Store
	auth      *services.AuthService
	quizzes   *services.QuizService
	responses *services.ResponseService
	verifier  *middleware.Verifier
	validate  *validator.Validate
	origins   []string
	commit    string
	buildTime string
}

func NewRouter(opts Options) *Router {
	verifier := opts.Verifier
	if verifier == nil {
		verifier = middleware.NewVerifier("devsecret-change-me")
	}
	responses := services.NewResponseService(opts.Store, opts.QuizCache)
	responses.SetStrictChoices(opts.StrictChoices)
	return &Router{
		store:     opts.Store,
		auth:      services.NewAuthService(opts.Store, verifier.SignToken, opts.TokenTTL),
		quizzes:   services.NewQuizService(opts.Store, opts.QuizCache),
		responses: responses,
		verifier:  verifier,
		validate:  newValidator(),
		origins:   opts.CORSOrigins,
		commit:    opts.Commit,
		buildTime: opts.BuildTime,
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	owner := func(h http.HandlerFunc) http.Handler { return middleware.RequireAuth(h) }

	mux.HandleFunc("POST /api/auth/signup", rt.handleSignup)
	mux.HandleFunc("POST /api/auth/signin", rt.handleSignin)
	mux.HandleFunc("POST /api/auth/signout", rt.handleSignout)
	mux.Handle("GET /api/auth/me", owner(rt.handleMe))

	mux.Handle("GET /api/quizzes", owner(rt.handleListQuizzes))
	mux.Handle("POST /api/quizzes", owner(rt.handleCreateQuiz))
	mux.Handle("GET /api/quizzes/{id}", owner(rt.handleGetQuiz))
	mux.Handle("GET /api/quizzes/{id}/responses", owner(rt.handleListResponses))
	mux.Handle("GET /api/quizzes/{id}/responses/export", owner(rt.handleExportResponses))

	mux.HandleFunc("GET /api/public/quizzes", rt.handlePublicQuizzes)
	mux.HandleFunc("GET /api/public/quizzes/{id}", rt.handlePublicQuiz)
	mux.HandleFunc("POST /api/public/quizzes/{id}/responses", rt.handleSubmit)

	mux.HandleFunc("GET /health", rt.handleHealth)
	mux.HandleFunc("GET /version", rt.handleVersion)
}

// Handler returns the routes behind the middleware chain: request log,
// security headers, CORS, then token verification.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	rt.Register(mux)
	var h http.Handler = rt.verifier.WithAuth(mux)
	h = middleware.CORS(rt.origins)(h)
	h = middleware.SecureHeaders(h)
	return middleware.RequestLog(h)
}

func identity(r *http.Request) models.Identity {
	id, _ := middleware.IdentityFromContext(r.Context())
	return id
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := rt.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "name": "Quizly API", "error": "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       "Quizly API",
		"commit":     rt.commit,
		"build_time": rt.buildTime,
	})
}

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"commit": rt.commit, "build_time": rt.buildTime})
}

// POST /api/auth/signup
func (rt *Router) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := rt.validate.Struct(req); err != nil {
		writeInvalidPayload(w, "invalid signup request", validationDetails(err))
		return
	}
	res, err := rt.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authPayload(res))
}

// POST /api/auth/signin
func (rt *Router) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := rt.validate.Struct(req); err != nil {
		writeInvalidPayload(w, "invalid signin request", validationDetails(err))
		return
	}
	res, err := rt.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authPayload(res))
}

// POST /api/auth/signout. Tokens are stateless; the client drops its copy.
func (rt *Router) handleSignout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (rt *Router) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := rt.auth.Me(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userView(u))
}

// GET /api/quizzes
func (rt *Router) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	list, err := rt.quizzes.ListQuizzesFor(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]quizSummaryView, 0, len(list))
	for _, s := range list {
		out = append(out, summaryView(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/quizzes
func (rt *Router) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := rt.validate.Struct(req); err != nil {
		writeInvalidPayload(w, "invalid quiz request", validationDetails(err))
		return
	}
	quiz, err := rt.quizzes.CreateQuiz(r.Context(), identity(r), services.CreateQuizInput{
		Title:       req.Title,
		Description: req.Description,
		Questions:   req.Questions,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

// GET /api/quizzes/{id}
func (rt *Router) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := rt.quizzes.GetOwnedQuiz(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// GET /api/quizzes/{id}/responses
func (rt *Router) handleListResponses(w http.ResponseWriter, r *http.Request) {
	listing, err := rt.responses.ListResponses(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// GET /api/quizzes/{id}/responses/export?format=wide|long
func (rt *Router) handleExportResponses(w http.ResponseWriter, r *http.Request) {
	res, err := rt.responses.ExportResponses(r.Context(), identity(r), r.PathValue("id"), r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(res.Filename))
	_, _ = w.Write(res.Body)
}

// GET /api/public/quizzes
func (rt *Router) handlePublicQuizzes(w http.ResponseWriter, r *http.Request) {
	list, err := rt.quizzes.ListPublicQuizzes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/public/quizzes/{id}
func (rt *Router) handlePublicQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := rt.quizzes.GetPublicQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// POST /api/public/quizzes/{id}/responses
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := rt.validate.Struct(req); err != nil {
		writeInvalidPayload(w, "invalid submission", validationDetails(err))
		return
	}
	res, err := rt.responses.Submit(r.Context(), services.SubmitRequest{
		QuizID:         r.PathValue("id"),
		Answers:        req.Answers,
		SubmitterName:  req.SubmitterName,
		SubmitterEmail: req.SubmitterEmail,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           res.ResponseID,
		"responseId":   res.ResponseID,
		"message":      "Response submitted successfully",
		"answersCount": res.AnswersCount,
	})
}
