package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"miniblog/internal/api/middleware"
	"miniblog/internal/app/service"
	"miniblog/internal/common"
	"miniblog/internal/common/security"
)

type AuthHandler struct {
	authService    *service.AuthService
	sessionService *service.SessionService
	homePath       string
	cookieMaxAge   int
	logger         *logrus.Logger
}

func NewAuthHandler(authService *service.AuthService, sessionService *service.SessionService, homePath string, cookieMaxAge int, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
		homePath:       homePath,
		cookieMaxAge:   cookieMaxAge,
		logger:         logger,
	}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

// RegisterProtectedRoutes holds the routes that require a resolved actor.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/logout", h.logout)
	r.Post("/logout", h.logout)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserFromContext(r.Context()); ok {
		http.Redirect(w, r, h.homePath, http.StatusFound)
		return
	}

	req := service.RegisterRequest{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}

	if _, err := h.authService.Register(r.Context(), req); err != nil {
		var ve *common.ValidationError
		switch {
		case errors.As(err, &ve):
			common.RespondWithFieldErrors(w, ve.Fields)
		case errors.Is(err, common.ErrDuplicateUsername):
			common.RespondWithFieldErrors(w, map[string]string{"username": err.Error()})
		case errors.Is(err, common.ErrDuplicateEmail):
			common.RespondWithFieldErrors(w, map[string]string{"email": err.Error()})
		default:
			h.logger.WithError(err).Error("registration failed")
			common.RespondWithError(w, http.StatusInternalServerError, common.ErrInternalServer.Error())
		}
		return
	}

	http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserFromContext(r.Context()); ok {
		http.Redirect(w, r, h.homePath, http.StatusFound)
		return
	}

	identifier := r.PostFormValue("identifier")
	if identifier == "" {
		identifier = r.PostFormValue("username")
	}
	password := r.PostFormValue("password")

	result, err := h.sessionService.Login(r.Context(), identifier, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			// One message for both unknown identifier and wrong password.
			common.RespondWithFieldErrors(w, map[string]string{"login": common.ErrInvalidCredentials.Error()})
			return
		}
		h.logger.WithError(err).Error("login failed")
		common.RespondWithError(w, http.StatusInternalServerError, common.ErrInternalServer.Error())
		return
	}

	http.SetCookie(w, h.sessionCookie(result.Token, h.cookieMaxAge))

	next := r.URL.Query().Get("next")
	if next == "" {
		next = r.PostFormValue("next")
	}
	http.Redirect(w, r, service.SafeRedirectPath(next, h.homePath), http.StatusFound)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if sid, ok := middleware.GetSessionIDFromContext(r.Context()); ok {
		_ = h.sessionService.Logout(r.Context(), sid)
	}
	http.SetCookie(w, h.sessionCookie("", -1))
	http.Redirect(w, r, h.homePath, http.StatusFound)
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     security.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
