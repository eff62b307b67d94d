package announcement

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

var Priorities = []string{PriorityLow, PriorityNormal, PriorityHigh}

type Announcement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Priority    string     `json:"priority"`
	AuthorEmail string     `json:"author_email"`
	AuthorName  string     `json:"author_name"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Input is used both to create and to update an Announcement.
type Input struct {
	Title    string `json:"title" validate:"required,notblank"`
	Content  string `json:"content" validate:"required,notblank"`
	Priority string `json:"priority" validate:"omitempty,priority"`
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Content = core.CleanString(in.Content)
	in.Priority = core.CleanString(in.Priority, true /* lower */)
	if in.Priority == "" {
		in.Priority = PriorityNormal
	}
	return validate.Struct(in)
}

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (Announcement, error)
		// QueryAnnouncements returns the newest first; limit <= 0 means no limit.
		QueryAnnouncements(ctx context.Context, limit int, exec ...core.DBExecutor) ([]Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, requester core.Identity, in Input) (Announcement, error)
		Get(ctx context.Context, id string) (Announcement, error)
		Query(ctx context.Context, limit int) ([]Announcement, error)
		Update(ctx context.Context, requester core.Identity, id string, in Input) (Announcement, error)
		Delete(ctx context.Context, requester core.Identity, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, requester core.Identity, in Input) (Announcement, error) {
	if !requester.IsAdmin() {
		return Announcement{}, core.ErrForbidden
	}
	a, err := svc.repo.CreateAnnouncement(ctx, Announcement{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Content:     in.Content,
		Priority:    in.Priority,
		AuthorEmail: requester.Email,
		AuthorName:  requester.Name,
		CreatedAt:   core.Now(),
	})
	return a, errors.Wrap(err, "inserting announcement")
}

func (svc *service) Get(ctx context.Context, id string) (Announcement, error) {
	return svc.repo.GetAnnouncement(ctx, id)
}

func (svc *service) Query(ctx context.Context, limit int) ([]Announcement, error) {
	return svc.repo.QueryAnnouncements(ctx, limit)
}

func (svc *service) Update(ctx context.Context, requester core.Identity, id string, in Input) (Announcement, error) {
	if !requester.IsAdmin() {
		return Announcement{}, core.ErrForbidden
	}
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	now := core.Now()
	a.Title, a.Content, a.Priority, a.UpdatedAt = in.Title, in.Content, in.Priority, &now
	a, err = svc.repo.UpdateAnnouncement(ctx, a)
	return a, errors.Wrap(err, "updating announcement")
}

func (svc *service) Delete(ctx context.Context, requester core.Identity, id string) error {
	if !requester.IsAdmin() {
		return core.ErrForbidden
	}
	if _, err := svc.repo.GetAnnouncement(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteAnnouncement(ctx, id)
}
