package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"

	"miniblog/internal/app/service"
	"miniblog/internal/common/security"
	"miniblog/internal/domain/model"
)

type contextKey string

const (
	userCtxKey      contextKey = "currentUser"
	sessionIDCtxKey contextKey = "sessionID"
	csrfTokenCtxKey contextKey = "csrfToken"
)

// LoginPath is where unauthenticated actors are sent; the original request
// path travels along as the "next" query parameter.
const LoginPath = "/auth/login"

// CurrentUser resolves the actor for the request. It never fails the
// request: a missing, invalid, expired or revoked token just leaves the
// actor anonymous. jwtauth.Verifier must run before it.
func CurrentUser(sessionService *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, rawClaims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims := jwt.MapClaims(rawClaims)
			userID, err := security.GetUserIDFromClaims(claims)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			sid, err := security.GetSessionIDFromClaims(claims)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, sess, err := sessionService.Resolve(r.Context(), userID, sid)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userCtxKey, user)
			ctx = context.WithValue(ctx, sessionIDCtxKey, sid)
			ctx = context.WithValue(ctx, csrfTokenCtxKey, sess.CSRFToken)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth gates protected routes. Anonymous actors are redirected to the
// login page with the original URL preserved in "next".
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserFromContext(r.Context()); !ok {
			target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userCtxKey).(*model.User)
	return user, ok && user != nil
}

func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionIDCtxKey).(string)
	return sid, ok
}

func GetCSRFTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(csrfTokenCtxKey).(string)
	return token, ok
}
