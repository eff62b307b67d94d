package comment

import (
	"context"
	"time"

	"github.com/erasmushub/erasmushub/core"
)

// Comment is an append-only review note attached to an application.
type Comment struct {
	ID            int64     `json:"id"`
	ApplicationID string    `json:"application_id"`
	AuthorEmail   string    `json:"author_email"`
	AuthorName    string    `json:"author_name"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

type NewComment struct {
	Text string `json:"text"`
}

// Clean trims the text and rejects a blank one.
func (nc *NewComment) Clean() error {
	nc.Text = core.CleanString(nc.Text)
	if nc.Text == "" {
		return core.NewFieldError("text", "comment cannot be empty")
	}
	return nil
}

type Repository interface {
	CreateComment(ctx context.Context, c Comment, exec ...core.DBExecutor) (Comment, error)
	// ListComments returns the comments of one application, newest first.
	ListComments(ctx context.Context, applicationID string, exec ...core.DBExecutor) ([]Comment, error)
}
