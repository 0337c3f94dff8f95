package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/sirupsen/logrus"

	"miniblog/internal/api/handler"
	"miniblog/internal/api/middleware"
	"miniblog/internal/app/service"
	"miniblog/internal/common/security"
)

// RouterDeps collects everything the HTTP surface needs; main constructs it
// once and nothing here reaches for globals.
type RouterDeps struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService
	PostService    *service.PostService
	Tokens         *security.TokenAuthority
	Logger         *logrus.Logger
	HomePath       string
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Pipeline stage 1: verify the session cookie's signature (never fatal).
	// Stage 2: resolve the actor; protected groups add RequireAuth and the
	// anti-forgery check on top.
	r.Use(jwtauth.Verifier(deps.Tokens.JWTAuth))
	r.Use(middleware.CurrentUser(deps.SessionService))

	requireCSRF := middleware.RequireCSRF(deps.SessionService)

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handler.NewAuthHandler(
		deps.AuthService, deps.SessionService, deps.HomePath,
		int(deps.Tokens.TTL()/time.Second), deps.Logger,
	)
	postHandler := handler.NewPostHandler(deps.PostService, deps.HomePath, deps.Logger)

	// Home: the post listing.
	r.Get("/", postHandler.Home())

	r.Route("/auth", func(ar chi.Router) {
		authHandler.RegisterRoutes(ar)
		ar.Group(func(pr chi.Router) {
			pr.Use(middleware.RequireAuth)
			authHandler.RegisterProtectedRoutes(pr)
		})
	})

	r.Route("/posts", func(pr chi.Router) {
		postHandler.RegisterPublicRoutes(pr)
		pr.Group(func(mr chi.Router) {
			mr.Use(middleware.RequireAuth)
			mr.Use(requireCSRF)
			postHandler.RegisterProtectedRoutes(mr)
		})
	})

	return r
}
