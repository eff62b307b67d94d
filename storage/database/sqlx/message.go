package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/message"
)

const messageColumns = "id, from_email, from_name, from_role, to_email, to_role, message_text, is_read, created_at"

type messageRow struct {
	ID        string      `db:"id"`
	FromEmail string      `db:"from_email"`
	FromName  string      `db:"from_name"`
	FromRole  string      `db:"from_role"`
	ToEmail   null.String `db:"to_email"`
	ToRole    string      `db:"to_role"`
	Text      string      `db:"message_text"`
	IsRead    bool        `db:"is_read"`
	CreatedAt time.Time   `db:"created_at"`
}

func (row messageRow) message() message.Message {
	return message.Message{
		ID:        row.ID,
		FromEmail: row.FromEmail,
		FromName:  row.FromName,
		FromRole:  row.FromRole,
		ToEmail:   row.ToEmail.String,
		ToRole:    row.ToRole,
		Text:      row.Text,
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type messageRepository struct {
	repository
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(exec core.DBExecutor) *messageRepository {
	return &messageRepository{repository{exec: exec}}
}

func (repo messageRepository) CreateMessage(ctx context.Context, m message.Message, exec ...core.DBExecutor) (message.Message, error) {
	const q = `INSERT INTO messages (id, from_email, from_name, from_role, to_email, to_role, message_text, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		m.ID, m.FromEmail, m.FromName, m.FromRole,
		null.NewString(m.ToEmail, m.ToEmail != ""),
		m.ToRole, m.Text, m.IsRead, m.CreatedAt.UTC(),
	)
	if err != nil {
		return message.Message{}, errors.Wrap(err, "inserting message")
	}
	return m, nil
}

func (repo messageRepository) GetMessage(ctx context.Context, id string, exec ...core.DBExecutor) (message.Message, error) {
	var row messageRow
	err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+messageColumns+" FROM messages WHERE id = $1", id)
	if err != nil {
		return message.Message{}, trapNoRowsErr(err, "finding message")
	}
	return row.message(), nil
}

func (repo messageRepository) QueryMessages(ctx context.Context, filter message.Filter, exec ...core.DBExecutor) ([]message.Message, error) {
	var (
		or   []string
		args []interface{}
	)
	for _, f := range []struct{ col, val string }{
		{"from_email", filter.FromEmail},
		{"to_email", filter.ToEmail},
		{"from_role", filter.FromRole},
		{"to_role", filter.ToRole},
	} {
		if f.val != "" {
			or = append(or, f.col+" = ?")
			args = append(args, f.val)
		}
	}

	where := whereClause{}
	if len(or) > 0 {
		where.add("("+strings.Join(or, " OR ")+")", args...)
	}
	if filter.Unread {
		where.add("is_read = false")
	}

	exe := repo.getExec(exec)
	query := "SELECT " + messageColumns + " FROM messages" + where.String() + " ORDER BY created_at DESC, id"
	var rows []messageRow
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(query), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]message.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.message())
	}
	return msgs, nil
}

func (repo messageRepository) MarkRead(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "UPDATE messages SET is_read = true WHERE id = $1", id)
	return checkAffected(res, err, "marking message read")
}
