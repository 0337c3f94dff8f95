package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"miniblog/internal/common"
	"miniblog/internal/domain/model"
	"miniblog/internal/domain/repository"
)

const maxTitleLen = 200

// PostService owns the post lifecycle. Reads are public; every mutation
// requires an authenticated actor and the author check, and runs inside a
// single storage transaction.
type PostService struct {
	postRepo repository.PostRepository
	tx       repository.TxRunner
}

func NewPostService(postRepo repository.PostRepository, tx repository.TxRunner) *PostService {
	return &PostService{postRepo: postRepo, tx: tx}
}

type PostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (r PostRequest) validate() map[string]string {
	fields := map[string]string{}
	if len(r.Title) < 1 || len(r.Title) > maxTitleLen {
		fields["title"] = "title must be 1-200 characters"
	}
	if r.Body == "" {
		fields["body"] = "body must not be empty"
	}
	return fields
}

func (s *PostService) Create(ctx context.Context, actor *model.User, req PostRequest) (*model.Post, error) {
	if actor == nil {
		return nil, common.ErrUnauthenticated
	}
	if fields := req.validate(); len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}

	now := time.Now()
	post := &model.Post{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Slug:      slug.Make(req.Title),
		Body:      req.Body,
		AuthorID:  actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.postRepo.Create(ctx, tx, post)
	})
	if err != nil {
		return nil, common.Errorf("failed to create post: %w: %v", common.ErrTransientStore, err)
	}

	post.AuthorUsername = &actor.Username
	return post, nil
}

// Get is public: no actor required.
func (s *PostService) Get(ctx context.Context, postID string) (*model.Post, error) {
	return s.postRepo.FindByID(ctx, postID)
}

// List returns all posts newest first; equal timestamps keep insertion
// order, later inserts first.
func (s *PostService) List(ctx context.Context) ([]model.Post, error) {
	return s.postRepo.List(ctx)
}

// Update mutates title and body in place. AuthorID and CreatedAt never
// change. Concurrent edits to the same post are last-write-wins at the
// transaction commit boundary.
func (s *PostService) Update(ctx context.Context, actor *model.User, postID string, req PostRequest) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !CanMutate(actor, post) {
		return nil, common.ErrForbidden
	}
	if fields := req.validate(); len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}

	if post.Title != req.Title {
		post.Slug = slug.Make(req.Title)
	}
	post.Title = req.Title
	post.Body = req.Body
	post.UpdatedAt = time.Now()

	err = s.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.postRepo.Update(ctx, tx, post)
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, common.Errorf("failed to update post: %w: %v", common.ErrTransientStore, err)
	}
	return post, nil
}

// Delete removes a post permanently. Deleting an id that is already gone
// reports NotFound.
func (s *PostService) Delete(ctx context.Context, actor *model.User, postID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return err
	}
	if !CanMutate(actor, post) {
		return common.ErrForbidden
	}

	err = s.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.postRepo.Delete(ctx, tx, postID)
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return err
		}
		return common.Errorf("failed to delete post: %w: %v", common.ErrTransientStore, err)
	}
	return nil
}
