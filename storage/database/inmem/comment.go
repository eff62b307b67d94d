package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/comment"
)

type commentRepository struct {
	db *DB
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *DB) *commentRepository {
	return &commentRepository{db: db}
}

func (repo *commentRepository) CreateComment(_ context.Context, c comment.Comment, _ ...core.DBExecutor) (comment.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.applications[c.ApplicationID]; !ok {
		return comment.Comment{}, errors.Errorf("application %q does not exist", c.ApplicationID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = core.Now()
	}
	repo.db.commentPK++
	c.ID = repo.db.commentPK
	repo.db.comments[c.ID] = c
	return c, nil
}

func (repo *commentRepository) ListComments(_ context.Context, applicationID string, _ ...core.DBExecutor) ([]comment.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	comments := make([]comment.Comment, 0)
	for _, c := range repo.db.comments {
		if c.ApplicationID == applicationID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})
	return comments, nil
}
