package store

import (
	"context"
	"fmt"
	"time"

	"github.com/01moynul/bazaar-golang/internal/models"
)

const commentColumns = `id, user_id, product_id, parent_id, text, lifecycle, created_at, updated_at`

func scanComment(row scanner) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.UserID, &c.ProductID, &c.ParentID, &c.Text, &c.Lifecycle, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *MySQLStore) CreateComment(ctx context.Context, c *models.Comment) error {
	now := time.Now().UTC()
	c.Lifecycle = models.Active
	c.CreatedAt, c.UpdatedAt = now, now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (user_id, product_id, parent_id, text, lifecycle, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.ProductID, c.ParentID, c.Text, c.Lifecycle, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create comment: %w", mapErr(err))
	}
	return insertID(res, &c.ID)
}

func (s *MySQLStore) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *MySQLStore) ListComments(ctx context.Context, f CommentFilter) ([]models.Comment, error) {
	query := "SELECT " + commentColumns + " FROM comments WHERE lifecycle = ?"
	args := []any{models.Active}
	if f.ProductID != 0 {
		query += " AND product_id = ?"
		args = append(args, f.ProductID)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return collect(rows, scanComment)
}

func (s *MySQLStore) UpdateComment(ctx context.Context, c *models.Comment) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"UPDATE comments SET text = ?, updated_at = ? WHERE id = ? AND lifecycle = ?",
		c.Text, now, c.ID, models.Active)
	if err != nil {
		return fmt.Errorf("update comment %d: %w", c.ID, err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

func (s *MySQLStore) DeactivateComment(ctx context.Context, id int64) error {
	return deactivate(ctx, s.db, "comments", id)
}

// CreateRating fails with ErrDuplicate when the user already rated the
// product.
func (s *MySQLStore) CreateRating(ctx context.Context, r *models.Rating) error {
	r.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO ratings (user_id, product_id, score, created_at) VALUES (?, ?, ?, ?)",
		r.UserID, r.ProductID, r.Score, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("create rating: %w", mapErr(err))
	}
	return insertID(res, &r.ID)
}

func (s *MySQLStore) GetRating(ctx context.Context, id int64) (*models.Rating, error) {
	var r models.Rating
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, product_id, score, created_at FROM ratings WHERE id = ?", id,
	).Scan(&r.ID, &r.UserID, &r.ProductID, &r.Score, &r.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}
