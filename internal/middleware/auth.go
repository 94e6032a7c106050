package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/soaringjerry/quizly/internal/models"
)

type authCtxKey int

const authKey authCtxKey = 7

// ErrTokenRejected covers every way a bearer token can fail: missing or
// malformed header, bad signature, wrong algorithm, expiry, missing subject.
var ErrTokenRejected = errors.New("invalid or expired token")

type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier signs and verifies HS256 identity tokens with a shared secret.
// It performs no storage lookups.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

func (v *Verifier) SignToken(uid, email string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{UID: uid, Email: email, RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now), ExpiresAt: jwt.NewNumericDate(now.Add(ttl))}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify validates tok and returns the identity it carries.
func (v *Verifier) Verify(tok string) (models.Identity, error) {
	if strings.TrimSpace(tok) == "" {
		return models.Identity{}, ErrTokenRejected
	}
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now), jwt.WithExpirationRequired())
	if err != nil {
		return models.Identity{}, ErrTokenRejected
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.UID == "" {
		return models.Identity{}, ErrTokenRejected
	}
	return models.Identity{UserID: c.UID, Email: c.Email}, nil
}

// VerifyHeader accepts an Authorization header value of the form "Bearer <token>".
func (v *Verifier) VerifyHeader(h string) (models.Identity, error) {
	if !strings.HasPrefix(h, "Bearer ") {
		return models.Identity{}, ErrTokenRejected
	}
	return v.Verify(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
}

// WithAuth attaches the verified identity to the context if the Authorization
// header is present and valid. Verification happens once per request here.
func (v *Verifier) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := v.VerifyHeader(r.Header.Get("Authorization")); err == nil {
			ctx := context.WithValue(r.Context(), authKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests that WithAuth did not authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","code":"unauthorized"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(authKey).(models.Identity)
	return id, ok && id.UserID != ""
}

// ContextWithIdentity is used by tests and internal callers that already hold a verified identity.
func ContextWithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, authKey, id)
}
