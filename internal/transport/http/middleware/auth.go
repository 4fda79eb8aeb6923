package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/constants"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/auth"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
)

const APIKeyHeader = "X-API-Key"

type contextKey string

const userContextKey contextKey = "user"

type UserResolver interface {
	ByAPIKey(ctx context.Context, key string) (*model.User, error)
	ByID(ctx context.Context, id string) (*model.User, error)
}

type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// Authenticate resolves the caller from X-API-Key or a Bearer session token
// and stores the user in the request context. The user is always reloaded so
// plan and suspension changes apply immediately.
func Authenticate(users UserResolver, tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := resolveUser(r, users, tokens)
			if user == nil {
				httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func resolveUser(r *http.Request, users UserResolver, tokens TokenParser) *model.User {
	ctx := r.Context()

	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		u, err := users.ByAPIKey(ctx, key)
		if err != nil {
			return nil
		}
		return u
	}

	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok || tokens == nil {
		return nil
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil
	}
	u, err := users.ByID(ctx, claims.UserID)
	if err != nil {
		return nil
	}
	return u
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
			return
		}
		if !user.IsAdmin() {
			httputils.WriteAPIError(w, r, constants.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userContextKey).(*model.User)
	return u, ok && u != nil
}
