package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"salesops-data/internal/domain"
	applog "salesops-data/internal/logger"
)

// Claims bearer token payload
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Team  string `json:"team,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Actor() domain.Actor {
	return domain.Actor{ID: c.ID, Email: c.Email, Name: c.Name, Role: c.Role, Team: c.Team}
}

// TokenVerifier HS256 token check.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" || claims.Name == "" {
		return nil, errors.New("token missing id or name")
	}
	return claims, nil
}

// IssueToken signs a token for actor. Used by the ops CLI and tests; logins
// are handled elsewhere.
func IssueToken(secret string, actor domain.Actor, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := Claims{
		ID:    actor.ID,
		Email: actor.Email,
		Name:  actor.Name,
		Role:  actor.Role,
		Team:  actor.Team,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

type actorKey struct{}

func withActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// actorFrom returns the authenticated caller set by RequireAuth.
func actorFrom(r *http.Request) (domain.Actor, bool) {
	a, ok := r.Context().Value(actorKey{}).(domain.Actor)
	return a, ok
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(v *TokenVerifier, logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Message: "Authorization header required"})
			return
		}
		token := header
		if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
			token = strings.TrimSpace(header[7:])
		}
		claims, err := v.Verify(token)
		if err != nil {
			logger.Debug("Rejected bearer token", zap.String("path", r.URL.Path), zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, errorBody{Message: "Invalid token"})
			return
		}
		actor := claims.Actor()
		ctx := withActor(r.Context(), actor)
		ctx = applog.WithContext(ctx, applog.Request(logger, r.Method, r.URL.Path, actor.ID, actor.Name))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
