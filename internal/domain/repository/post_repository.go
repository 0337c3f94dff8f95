package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"miniblog/internal/common"
	"miniblog/internal/domain/model"
)

// TxRunner executes a function inside a storage transaction: either every
// write in fn commits, or the whole transaction rolls back.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *model.Post) error
	Update(ctx context.Context, tx *sql.Tx, post *model.Post) error
	Delete(ctx context.Context, tx *sql.Tx, id string) error
	FindByID(ctx context.Context, id string) (*model.Post, error)
	List(ctx context.Context) ([]model.Post, error)
}

type pgPostRepository struct {
	db *sql.DB
}

func NewPgPostRepository(db *sql.DB) PostRepository {
	return &pgPostRepository{db: db}
}

// SQLTxRunner runs transactions against the Postgres pool.
type SQLTxRunner struct {
	db *sql.DB
}

func NewSQLTxRunner(db *sql.DB) *SQLTxRunner {
	return &SQLTxRunner{db: db}
}

func (r *SQLTxRunner) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *pgPostRepository) Create(ctx context.Context, tx *sql.Tx, p *model.Post) error {
	query := `INSERT INTO posts (id, title, slug, body, author_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING seq`

	row := tx.QueryRowContext(ctx, query, p.ID, p.Title, p.Slug, p.Body, p.AuthorID, p.CreatedAt, p.UpdatedAt)
	if err := row.Scan(&p.Seq); err != nil {
		return fmt.Errorf("pgPostRepository.Create: %w", err)
	}
	return nil
}

func (r *pgPostRepository) Update(ctx context.Context, tx *sql.Tx, p *model.Post) error {
	query := `UPDATE posts SET title = $1, slug = $2, body = $3, updated_at = $4
	          WHERE id = $5`

	res, err := tx.ExecContext(ctx, query, p.Title, p.Slug, p.Body, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("pgPostRepository.Update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgPostRepository.Update rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgPostRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgPostRepository.Delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgPostRepository.Delete rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgPostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	query := `SELECT p.id, p.seq, p.title, p.slug, p.body, p.author_id, u.username, p.created_at, p.updated_at
	          FROM posts p JOIN users u ON u.id = p.author_id
	          WHERE p.id = $1`
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID, &post.Seq, &post.Title, &post.Slug, &post.Body,
		&post.AuthorID, &post.AuthorUsername, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgPostRepository.FindByID: %w", err)
	}
	return post, nil
}

func (r *pgPostRepository) List(ctx context.Context) ([]model.Post, error) {
	query := `SELECT p.id, p.seq, p.title, p.slug, p.body, p.author_id, u.username, p.created_at, p.updated_at
	          FROM posts p JOIN users u ON u.id = p.author_id
	          ORDER BY p.created_at DESC, p.seq DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgPostRepository.List: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var post model.Post
		if err := rows.Scan(
			&post.ID, &post.Seq, &post.Title, &post.Slug, &post.Body,
			&post.AuthorID, &post.AuthorUsername, &post.CreatedAt, &post.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgPostRepository.List scan: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgPostRepository.List rows: %w", err)
	}
	return posts, nil
}
