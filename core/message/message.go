package message

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
)

type Message struct {
	ID        string    `json:"id"`
	FromEmail string    `json:"from_email"`
	FromName  string    `json:"from_name"`
	FromRole  string    `json:"from_role"`
	ToEmail   string    `json:"to_email,omitempty"`
	ToRole    string    `json:"to_role"`
	Text      string    `json:"text"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewMessage struct {
	ToEmail string `json:"to_email"`
	Text    string `json:"text"`
}

// Filter selects the messages visible to one mailbox. Empty fields are ignored;
// the remaining ones are OR-ed.
type Filter struct {
	FromEmail string
	ToEmail   string
	FromRole  string
	ToRole    string
	Unread    bool // AND-ed with the rest
}

type (
	Repository interface {
		CreateMessage(ctx context.Context, m Message, exec ...core.DBExecutor) (Message, error)
		GetMessage(ctx context.Context, id string, exec ...core.DBExecutor) (Message, error)
		// QueryMessages returns the newest first.
		QueryMessages(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Message, error)
		MarkRead(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Send(ctx context.Context, requester core.Identity, nm NewMessage) (Message, error)
		Query(ctx context.Context, requester core.Identity) ([]Message, error)
		MarkRead(ctx context.Context, requester core.Identity, id string) error
		UnreadCount(ctx context.Context, requester core.Identity) (int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Send writes to the admin office when requester is a student, to a student otherwise.
func (svc *service) Send(ctx context.Context, requester core.Identity, nm NewMessage) (Message, error) {
	nm.Text = core.CleanString(nm.Text)
	nm.ToEmail = core.CleanString(nm.ToEmail, true /* lower */)
	if nm.Text == "" {
		return Message{}, core.NewFieldError("text", "message cannot be empty")
	}

	m := Message{
		ID:        uuid.New().String(),
		FromEmail: requester.Email,
		FromName:  requester.Name,
		FromRole:  requester.Role,
		ToEmail:   nm.ToEmail,
		Text:      nm.Text,
		CreatedAt: core.Now(),
	}
	switch {
	case requester.IsStudent():
		m.ToRole = core.RoleAdmin
	case requester.IsAdmin():
		if nm.ToEmail == "" {
			return Message{}, core.NewFieldError("to_email", "recipient is required")
		}
		m.ToRole = core.RoleStudent
	default:
		return Message{}, core.ErrForbidden
	}
	m, err := svc.repo.CreateMessage(ctx, m)
	return m, errors.Wrap(err, "inserting message")
}

func mailbox(requester core.Identity) Filter {
	if requester.IsAdmin() {
		return Filter{FromRole: core.RoleAdmin, ToRole: core.RoleAdmin}
	}
	return Filter{FromEmail: requester.Email, ToEmail: requester.Email}
}

func (svc *service) Query(ctx context.Context, requester core.Identity) ([]Message, error) {
	return svc.repo.QueryMessages(ctx, mailbox(requester))
}

func (svc *service) MarkRead(ctx context.Context, requester core.Identity, id string) error {
	m, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if requester.IsStudent() && m.ToEmail != requester.Email {
		return core.ErrForbidden
	}
	return svc.repo.MarkRead(ctx, id)
}

func (svc *service) UnreadCount(ctx context.Context, requester core.Identity) (int, error) {
	f := Filter{ToEmail: requester.Email, Unread: true}
	if requester.IsAdmin() {
		f = Filter{ToRole: core.RoleAdmin, Unread: true}
	}
	msgs, err := svc.repo.QueryMessages(ctx, f)
	if err != nil {
		return 0, errors.Wrap(err, "querying unread messages")
	}
	return len(msgs), nil
}
