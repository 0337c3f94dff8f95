package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"miniblog/internal/common"
	"miniblog/internal/domain/model"
	"miniblog/internal/domain/repository"
)

// failingTxRunner refuses every transaction, standing in for a storage
// outage at the commit boundary.
type failingTxRunner struct{}

func (failingTxRunner) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return errors.New("connection reset by peer")
}

func newTestPostService() (*PostService, *repository.MemoryUserRepository) {
	users := repository.NewMemoryUserRepository()
	posts := repository.NewMemoryPostRepository(users)
	return NewPostService(posts, repository.NoopTxRunner{}), users
}

func seedUser(t *testing.T, users *repository.MemoryUserRepository, id, name string) *model.User {
	t.Helper()
	u := &model.User{ID: id, Username: name, Email: name + "@example.com", HashedPassword: "x"}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return &model.User{ID: id, Username: name}
}

func TestCreateRequiresAuthentication(t *testing.T) {
	svc, _ := newTestPostService()

	_, err := svc.Create(context.Background(), nil, PostRequest{Title: "Hello", Body: "World"})
	if !errors.Is(err, common.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated error, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, users := newTestPostService()
	alice := seedUser(t, users, "u-alice", "alice")

	longTitle := make([]byte, 201)
	for i := range longTitle {
		longTitle[i] = 't'
	}

	cases := []struct {
		name  string
		req   PostRequest
		field string
	}{
		{"empty title", PostRequest{Title: "", Body: "body"}, "title"},
		{"title too long", PostRequest{Title: string(longTitle), Body: "body"}, "title"},
		{"empty body", PostRequest{Title: "ok", Body: ""}, "body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), alice, tc.req)
			var ve *common.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := ve.Fields[tc.field]; !ok {
				t.Fatalf("expected message on field %q, got %v", tc.field, ve.Fields)
			}
		})
	}
}

func TestCreateSetsAuthorAndSlug(t *testing.T) {
	svc, users := newTestPostService()
	alice := seedUser(t, users, "u-alice", "alice")

	post, err := svc.Create(context.Background(), alice, PostRequest{Title: "Hello World", Body: "Body"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if post.AuthorID != alice.ID {
		t.Fatalf("author not fixed to actor: %s", post.AuthorID)
	}
	if post.Slug != "hello-world" {
		t.Fatalf("unexpected slug %q", post.Slug)
	}
	if post.CreatedAt.IsZero() {
		t.Fatalf("created_at not set")
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, users := newTestPostService()
	alice := seedUser(t, users, "u-alice", "alice")
	ctx := context.Background()

	for _, title := range []string{"A", "B", "P"} {
		if _, err := svc.Create(ctx, alice, PostRequest{Title: title, Body: "b"}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	posts, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	if posts[0].Title != "P" {
		t.Fatalf("latest post not first: got %q", posts[0].Title)
	}
	for i := 1; i < len(posts); i++ {
		prev, cur := posts[i-1], posts[i]
		if cur.CreatedAt.After(prev.CreatedAt) {
			t.Fatalf("posts not in descending created_at order")
		}
		if cur.CreatedAt.Equal(prev.CreatedAt) && cur.Seq > prev.Seq {
			t.Fatalf("tie not broken by insertion order")
		}
	}
}

func TestUpdateOnlyByAuthor(t *testing.T) {
	svc, users := newTestPostService()
	alice := seedUser(t, users, "u-alice", "alice")
	bob := seedUser(t, users, "u-bob", "bob")
	ctx := context.Background()

	post, err := svc.Create(ctx, alice, PostRequest{Title: "Hello", Body: "World"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Update(ctx, bob, post.ID, PostRequest{Title: "Hijacked", Body: "x"}); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected forbidden for non-author, got %v", err)
	}
	if _, err := svc.Update(ctx, nil, post.ID, PostRequest{Title: "Hijacked", Body: "x"}); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected forbidden for anonymous, got %v", err)
	}

	updated, err := svc.Update(ctx, alice, post.ID, PostRequest{Title: "Hello v2", Body: "World v2"})
	if err != nil {
		t.Fatalf("author update failed: %v", err)
	}
	if updated.Title != "Hello v2" || updated.Body != "World v2" {
		t.Fatalf("update did not apply: %+v", updated)
	}
	if updated.AuthorID != alice.ID || !updated.CreatedAt.Equal(post.CreatedAt) {
		t.Fatalf("update changed immutable fields")
	}
	if updated.Slug != "hello-v2" {
		t.Fatalf("slug not regenerated on title change: %q", updated.Slug)
	}
}

func TestUpdateMissingPost(t *testing.T) {
	svc, users := newTestPostService()
	alice := seedUser(t, users, "u-alice", "alice")

	if _, err := svc.Update(context.Background(), alice, "no-such-id", PostRequest{Title: "t", Body: "b"}); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteOnlyByAuthorAndIdempotentFailure(t *testing.T) {
	svc, users := newTestPostService()
	alice := seedUser(t, users, "u-alice", "alice")
	bob := seedUser(t, users, "u-bob", "bob")
	ctx := context.Background()

	post, err := svc.Create(ctx, alice, PostRequest{Title: "Hello", Body: "World"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.Delete(ctx, bob, post.ID); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected forbidden for non-author, got %v", err)
	}

	if err := svc.Delete(ctx, alice, post.ID); err != nil {
		t.Fatalf("author delete failed: %v", err)
	}

	posts, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("post still listed after delete")
	}

	if err := svc.Delete(ctx, alice, post.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("second delete should report not found, got %v", err)
	}
}

func TestCreateStorageFailureIsTransient(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	posts := repository.NewMemoryPostRepository(users)
	svc := NewPostService(posts, failingTxRunner{})
	alice := seedUser(t, users, "u-alice", "alice")
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, PostRequest{Title: "Hello", Body: "World"})
	if !errors.Is(err, common.ErrTransientStore) {
		t.Fatalf("expected transient store error, got %v", err)
	}

	listed, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("failed create left state behind: %+v", listed)
	}
}

func TestUpdateDeleteStorageFailureLeavesStateUnchanged(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	posts := repository.NewMemoryPostRepository(users)
	alice := seedUser(t, users, "u-alice", "alice")
	ctx := context.Background()

	good := NewPostService(posts, repository.NoopTxRunner{})
	post, err := good.Create(ctx, alice, PostRequest{Title: "Hello", Body: "World"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	broken := NewPostService(posts, failingTxRunner{})

	if _, err := broken.Update(ctx, alice, post.ID, PostRequest{Title: "Changed", Body: "x"}); !errors.Is(err, common.ErrTransientStore) {
		t.Fatalf("expected transient store error on update, got %v", err)
	}
	stored, err := good.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("get after failed update: %v", err)
	}
	if stored.Title != "Hello" || stored.Body != "World" {
		t.Fatalf("failed update mutated the post: %+v", stored)
	}

	if err := broken.Delete(ctx, alice, post.ID); !errors.Is(err, common.ErrTransientStore) {
		t.Fatalf("expected transient store error on delete, got %v", err)
	}
	if _, err := good.Get(ctx, post.ID); err != nil {
		t.Fatalf("failed delete removed the post: %v", err)
	}
}

func TestGetIsPublic(t *testing.T) {
	svc, users := newTestPostService()
	alice := seedUser(t, users, "u-alice", "alice")
	ctx := context.Background()

	post, err := svc.Create(ctx, alice, PostRequest{Title: "Hello", Body: "World"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := svc.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("public get failed: %v", err)
	}
	if got.AuthorUsername == nil || *got.AuthorUsername != "alice" {
		t.Fatalf("expected author username decoration, got %+v", got.AuthorUsername)
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found for missing id, got %v", err)
	}
}
