package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/comment"
)

type commentRow struct {
	ID            int64     `db:"id"`
	ApplicationID string    `db:"application_id"`
	AuthorEmail   string    `db:"author_email"`
	AuthorName    string    `db:"author_name"`
	Text          string    `db:"comment_text"`
	CreatedAt     time.Time `db:"created_at"`
}

type commentRepository struct {
	repository
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(exec core.DBExecutor) *commentRepository {
	return &commentRepository{repository{exec: exec}}
}

func (repo commentRepository) CreateComment(ctx context.Context, c comment.Comment, exec ...core.DBExecutor) (comment.Comment, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = core.Now()
	}
	const q = `INSERT INTO application_comments (application_id, author_email, author_name, comment_text, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := repo.getExec(exec).QueryRowxContext(ctx, q,
		c.ApplicationID, c.AuthorEmail, c.AuthorName, c.Text, c.CreatedAt.UTC(),
	).Scan(&c.ID)
	if err != nil {
		return comment.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return c, nil
}

func (repo commentRepository) ListComments(ctx context.Context, applicationID string, exec ...core.DBExecutor) ([]comment.Comment, error) {
	const q = `SELECT id, application_id, author_email, author_name, comment_text, created_at
		FROM application_comments WHERE application_id = $1 ORDER BY created_at DESC, id DESC`
	var rows []commentRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, applicationID); err != nil {
		return nil, errors.Wrap(err, "listing comments")
	}
	comments := make([]comment.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, comment.Comment{
			ID:            row.ID,
			ApplicationID: row.ApplicationID,
			AuthorEmail:   row.AuthorEmail,
			AuthorName:    row.AuthorName,
			Text:          row.Text,
			CreatedAt:     row.CreatedAt.UTC(),
		})
	}
	return comments, nil
}
