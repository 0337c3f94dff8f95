package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"miniblog/internal/api/middleware"
	"miniblog/internal/app/service"
	"miniblog/internal/common"
	"miniblog/internal/domain/model"
)

type PostHandler struct {
	postService *service.PostService
	homePath    string
	logger      *logrus.Logger
}

func NewPostHandler(postService *service.PostService, homePath string, logger *logrus.Logger) *PostHandler {
	return &PostHandler{postService: postService, homePath: homePath, logger: logger}
}

// Home is the landing page: the same public listing as GET /posts.
func (h *PostHandler) Home() http.HandlerFunc {
	return h.list
}

// RegisterPublicRoutes: anyone can read.
func (h *PostHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{postID}", h.detail)
}

// RegisterProtectedRoutes: mutations, gated by RequireAuth and the
// anti-forgery check upstream.
func (h *PostHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/new", h.newForm)
	r.Post("/", h.create)
	r.Get("/{postID}/edit", h.editForm)
	r.Post("/{postID}/edit", h.update)
	r.Post("/{postID}/delete", h.delete)
}

// formPayload is what a client needs to render a post form: the prefill
// values (when editing) and the anti-forgery token to echo back.
type formPayload struct {
	Post      *model.Post `json:"post,omitempty"`
	CSRFToken string      `json:"csrf_token"`
}

type detailPayload struct {
	Post      *model.Post `json:"post"`
	CSRFToken string      `json:"csrf_token,omitempty"`
}

func (h *PostHandler) list(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

func (h *PostHandler) detail(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.Get(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	// The delete form on the detail page needs the session's CSRF token.
	csrfToken, _ := middleware.GetCSRFTokenFromContext(r.Context())
	common.RespondWithJSON(w, http.StatusOK, detailPayload{Post: post, CSRFToken: csrfToken})
}

func (h *PostHandler) newForm(w http.ResponseWriter, r *http.Request) {
	csrfToken, _ := middleware.GetCSRFTokenFromContext(r.Context())
	common.RespondWithJSON(w, http.StatusOK, formPayload{CSRFToken: csrfToken})
}

func (h *PostHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	req := service.PostRequest{
		Title: r.PostFormValue("title"),
		Body:  r.PostFormValue("body"),
	}

	if _, err := h.postService.Create(r.Context(), actor, req); err != nil {
		h.respondError(w, err)
		return
	}
	http.Redirect(w, r, h.homePath, http.StatusFound)
}

func (h *PostHandler) editForm(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	post, err := h.postService.Get(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !service.CanMutate(actor, post) {
		common.RespondWithError(w, http.StatusForbidden, common.ErrForbidden.Error())
		return
	}
	csrfToken, _ := middleware.GetCSRFTokenFromContext(r.Context())
	common.RespondWithJSON(w, http.StatusOK, formPayload{Post: post, CSRFToken: csrfToken})
}

func (h *PostHandler) update(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	postID := chi.URLParam(r, "postID")
	req := service.PostRequest{
		Title: r.PostFormValue("title"),
		Body:  r.PostFormValue("body"),
	}

	if _, err := h.postService.Update(r.Context(), actor, postID, req); err != nil {
		h.respondError(w, err)
		return
	}
	http.Redirect(w, r, "/posts/"+postID, http.StatusFound)
}

func (h *PostHandler) delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserFromContext(r.Context())
	if err := h.postService.Delete(r.Context(), actor, chi.URLParam(r, "postID")); err != nil {
		h.respondError(w, err)
		return
	}
	http.Redirect(w, r, h.homePath, http.StatusFound)
}

func (h *PostHandler) respondError(w http.ResponseWriter, err error) {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		common.RespondWithFieldErrors(w, ve.Fields)
		return
	}
	if errors.Is(err, common.ErrTransientStore) {
		// The transaction already rolled back; the caller gets a retry
		// message, the log gets the cause.
		h.logger.WithError(err).Error("post mutation failed, transaction rolled back")
		common.RespondWithError(w, http.StatusInternalServerError, "temporary failure, please try again later")
		return
	}
	status := common.HTTPStatusFromError(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("post request failed")
		common.RespondWithError(w, status, common.ErrInternalServer.Error())
		return
	}
	common.RespondWithError(w, status, err.Error())
}
