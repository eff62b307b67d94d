package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/announcement"
)

const announcementColumns = "id, title, content, priority, author_email, author_name, created_at, updated_at"

type announcementRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Content     string    `db:"content"`
	Priority    string    `db:"priority"`
	AuthorEmail string    `db:"author_email"`
	AuthorName  string    `db:"author_name"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   null.Time `db:"updated_at"`
}

func (row announcementRow) announcement() announcement.Announcement {
	a := announcement.Announcement{
		ID:          row.ID,
		Title:       row.Title,
		Content:     row.Content,
		Priority:    row.Priority,
		AuthorEmail: row.AuthorEmail,
		AuthorName:  row.AuthorName,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if row.UpdatedAt.Valid {
		t := row.UpdatedAt.Time.UTC()
		a.UpdatedAt = &t
	}
	return a
}

type announcementRepository struct {
	repository
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(exec core.DBExecutor) *announcementRepository {
	return &announcementRepository{repository{exec: exec}}
}

func (repo announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement, exec ...core.DBExecutor) (announcement.Announcement, error) {
	const q = `INSERT INTO announcements (id, title, content, priority, author_email, author_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		a.ID, a.Title, a.Content, a.Priority, a.AuthorEmail, a.AuthorName, a.CreatedAt.UTC())
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return a, nil
}

func (repo announcementRepository) GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (announcement.Announcement, error) {
	var row announcementRow
	err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+announcementColumns+" FROM announcements WHERE id = $1", id)
	if err != nil {
		return announcement.Announcement{}, trapNoRowsErr(err, "finding announcement")
	}
	return row.announcement(), nil
}

func (repo announcementRepository) QueryAnnouncements(ctx context.Context, limit int, exec ...core.DBExecutor) ([]announcement.Announcement, error) {
	q := "SELECT " + announcementColumns + " FROM announcements ORDER BY created_at DESC, id"
	var args []interface{}
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}
	var rows []announcementRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	anns := make([]announcement.Announcement, 0, len(rows))
	for _, row := range rows {
		anns = append(anns, row.announcement())
	}
	return anns, nil
}

func (repo announcementRepository) UpdateAnnouncement(ctx context.Context, a announcement.Announcement, exec ...core.DBExecutor) (announcement.Announcement, error) {
	const q = `UPDATE announcements SET title = $1, content = $2, priority = $3, updated_at = $4 WHERE id = $5`
	res, err := repo.getExec(exec).ExecContext(ctx, q, a.Title, a.Content, a.Priority, null.TimeFromPtr(a.UpdatedAt), a.ID)
	if err = checkAffected(res, err, "updating announcement"); err != nil {
		return announcement.Announcement{}, err
	}
	return a, nil
}

func (repo announcementRepository) DeleteAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id)
	return checkAffected(res, err, "deleting announcement")
}
