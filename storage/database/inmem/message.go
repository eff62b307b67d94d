package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/message"
)

type messageRepository struct {
	db *DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(_ context.Context, m message.Message, _ ...core.DBExecutor) (message.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.messages[m.ID]; ok {
		return message.Message{}, errors.Errorf("message %q already exists", m.ID)
	}
	repo.db.messages[m.ID] = m
	return m, nil
}

func (repo *messageRepository) GetMessage(_ context.Context, id string, _ ...core.DBExecutor) (message.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.messages[id]; ok {
		return m, nil
	}
	return message.Message{}, core.ErrNotFound
}

func matches(m message.Message, f message.Filter) bool {
	if f.Unread && m.IsRead {
		return false
	}
	if f.FromEmail == "" && f.ToEmail == "" && f.FromRole == "" && f.ToRole == "" {
		return true
	}
	return (f.FromEmail != "" && m.FromEmail == f.FromEmail) ||
		(f.ToEmail != "" && m.ToEmail == f.ToEmail) ||
		(f.FromRole != "" && m.FromRole == f.FromRole) ||
		(f.ToRole != "" && m.ToRole == f.ToRole)
}

func (repo *messageRepository) QueryMessages(_ context.Context, filter message.Filter, _ ...core.DBExecutor) ([]message.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	msgs := make([]message.Message, 0)
	for _, m := range repo.db.messages {
		if matches(m, filter) {
			msgs = append(msgs, m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
	return msgs, nil
}

func (repo *messageRepository) MarkRead(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m, ok := repo.db.messages[id]
	if !ok {
		return core.ErrNotFound
	}
	m.IsRead = true
	repo.db.messages[id] = m
	return nil
}
