package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/whisperhq/whisperd/internal/api/apierr"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/services/agent"
	"github.com/whisperhq/whisperd/internal/services/auth"
)

type contextKey string

const (
	userContextKey    contextKey = "user"
	sessionContextKey contextKey = "session"
)

// Auth creates authentication middleware. Humans authenticate with a
// session token; agents with the API key issued at registration.
func Auth(authService *auth.Service, agentService *agent.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, session, ok := authenticate(r, authService, agentService)
			if !ok {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			ctx := r.Context()
			if session != nil {
				ctx = context.WithValue(ctx, sessionContextKey, session)
			}
			ctx = context.WithValue(ctx, userContextKey, user)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts identity if present but doesn't require it
func OptionalAuth(authService *auth.Service, agentService *agent.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, session, ok := authenticate(r, authService, agentService); ok {
				ctx := r.Context()
				if session != nil {
					ctx = context.WithValue(ctx, sessionContextKey, session)
				}
				ctx = context.WithValue(ctx, userContextKey, user)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, authService *auth.Service, agentService *agent.Service) (*model.User, *auth.Session, bool) {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		user, err := agentService.Authenticate(r.Context(), apiKey)
		if err != nil {
			return nil, nil, false
		}
		return user, nil, true
	}

	token := extractToken(r)
	if token == "" {
		return nil, nil, false
	}
	session, err := authService.ValidateSession(token)
	if err != nil {
		return nil, nil, false
	}
	return &session.User, session, true
}

// extractToken extracts the session token from the request
func extractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie("session")
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetUser returns the authenticated user from the request context
func GetUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// GetSession returns the session from the request context
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionContextKey).(*auth.Session)
	return session
}

// MustGetUser returns the authenticated user or panics
func MustGetUser(ctx context.Context) *model.User {
	user := GetUser(ctx)
	if user == nil {
		panic("no user in context - auth middleware not applied?")
	}
	return user
}
