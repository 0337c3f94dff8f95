package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"miniblog/internal/common"
	"miniblog/internal/domain/model"
)

// In-memory adapters satisfying the same interfaces as the Postgres and
// Redis implementations. They back the test suites and make the full stack
// runnable without external services.

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*model.User // by id
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[string]*model.User{}}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return common.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return common.ErrDuplicateEmail
		}
	}
	cp := *user
	now := time.Now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	r.users[cp.ID] = &cp
	return nil
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

type MemoryPostRepository struct {
	mu      sync.RWMutex
	posts   map[string]*model.Post
	users   *MemoryUserRepository // for author username decoration
	nextSeq int64
}

func NewMemoryPostRepository(users *MemoryUserRepository) *MemoryPostRepository {
	return &MemoryPostRepository{posts: map[string]*model.Post{}, users: users}
}

func (r *MemoryPostRepository) Create(ctx context.Context, tx *sql.Tx, post *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	post.Seq = r.nextSeq
	cp := *post
	r.posts[cp.ID] = &cp
	return nil
}

func (r *MemoryPostRepository) Update(ctx context.Context, tx *sql.Tx, post *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.posts[post.ID]
	if !ok {
		return common.ErrNotFound
	}
	existing.Title = post.Title
	existing.Slug = post.Slug
	existing.Body = post.Body
	existing.UpdatedAt = post.UpdatedAt
	return nil
}

func (r *MemoryPostRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *MemoryPostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	r.decorate(ctx, &cp)
	return &cp, nil
}

func (r *MemoryPostRepository) List(ctx context.Context) ([]model.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	posts := make([]model.Post, 0, len(r.posts))
	for _, p := range r.posts {
		cp := *p
		r.decorate(ctx, &cp)
		posts = append(posts, cp)
	}
	// Newest first; equal timestamps fall back to insertion order, later
	// inserts sorting first.
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].Seq > posts[j].Seq
	})
	return posts, nil
}

func (r *MemoryPostRepository) decorate(ctx context.Context, p *model.Post) {
	if r.users == nil {
		return
	}
	if u, err := r.users.FindByID(ctx, p.AuthorID); err == nil {
		p.AuthorUsername = &u.Username
	}
}

type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]sessionRecord
}

type sessionRecord struct {
	sess      Session
	expiresAt time.Time
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: map[string]sessionRecord{}}
}

func (r *MemorySessionRepository) Create(ctx context.Context, sid string, sess Session, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = sessionRecord{sess: sess, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (r *MemorySessionRepository) Find(ctx context.Context, sid string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sessions[sid]
	if !ok || time.Now().After(rec.expiresAt) {
		return nil, common.ErrNotFound
	}
	cp := rec.sess
	return &cp, nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, sid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	return nil
}

// NoopTxRunner satisfies TxRunner for stores without transactions; fn runs
// with a nil tx, which the in-memory repositories ignore.
type NoopTxRunner struct{}

func (NoopTxRunner) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}
