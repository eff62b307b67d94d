package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/application"
)

const applicationColumns = `id, student_email, student_name, university, mobility_type, status, progress,
	submitted_date, approved_at, approved_by, rejected_at, rejected_by, rejection_reason, created_at`

type applicationRow struct {
	ID              string      `db:"id"`
	StudentEmail    string      `db:"student_email"`
	StudentName     string      `db:"student_name"`
	University      string      `db:"university"`
	MobilityType    string      `db:"mobility_type"`
	Status          string      `db:"status"`
	Progress        int         `db:"progress"`
	SubmittedDate   time.Time   `db:"submitted_date"`
	ApprovedAt      null.Time   `db:"approved_at"`
	ApprovedBy      null.String `db:"approved_by"`
	RejectedAt      null.Time   `db:"rejected_at"`
	RejectedBy      null.String `db:"rejected_by"`
	RejectionReason null.String `db:"rejection_reason"`
	CreatedAt       time.Time   `db:"created_at"`
}

func (row applicationRow) application() application.Application {
	app := application.Application{
		ID:            row.ID,
		StudentEmail:  row.StudentEmail,
		StudentName:   row.StudentName,
		University:    row.University,
		MobilityType:  row.MobilityType,
		Status:        application.Status(row.Status),
		Progress:      row.Progress,
		SubmittedDate: row.SubmittedDate.UTC(),
		CreatedAt:     row.CreatedAt.UTC(),
	}
	switch app.Status {
	case application.StatusApproved:
		if row.ApprovedAt.Valid {
			app.Decision = &application.Decision{DecidedAt: row.ApprovedAt.Time.UTC(), DecidedBy: row.ApprovedBy.String}
		}
	case application.StatusRejected:
		if row.RejectedAt.Valid {
			app.Decision = &application.Decision{
				DecidedAt:       row.RejectedAt.Time.UTC(),
				DecidedBy:       row.RejectedBy.String,
				RejectionReason: row.RejectionReason.String,
			}
		}
	}
	return app
}

type applicationRepository struct {
	repository
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(exec core.DBExecutor) *applicationRepository {
	return &applicationRepository{repository{exec: exec}}
}

func (repo applicationRepository) CreateApplication(ctx context.Context, app application.Application, exec ...core.DBExecutor) (application.Application, error) {
	const q = `INSERT INTO applications
		(id, student_email, student_name, university, mobility_type, status, progress, submitted_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		app.ID, app.StudentEmail, app.StudentName, app.University, app.MobilityType,
		string(app.Status), app.Progress, app.SubmittedDate.UTC(), app.CreatedAt.UTC(),
	)
	if err != nil {
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

func (repo applicationRepository) GetApplication(ctx context.Context, id string, exec ...core.DBExecutor) (application.Application, error) {
	var row applicationRow
	err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+applicationColumns+" FROM applications WHERE id = $1", id)
	if err != nil {
		return application.Application{}, trapNoRowsErr(err, "finding application")
	}
	return row.application(), nil
}

func (repo applicationRepository) QueryApplications(ctx context.Context, filter *application.QueryFilter, exec ...core.DBExecutor) ([]application.Application, error) {
	where := whereClause{}
	if filter != nil {
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
		if filter.StudentEmail != "" {
			where.add("student_email = ?", filter.StudentEmail)
		}
		if filter.Search != "" {
			val := likePattern(filter.Search)
			where.add("(university ILIKE ? OR student_name ILIKE ?)", val, val)
		}
	}

	exe := repo.getExec(exec)
	query := "SELECT " + applicationColumns + " FROM applications" + where.String() + " ORDER BY created_at DESC, id"
	var rows []applicationRow
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(query), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	apps := make([]application.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, row.application())
	}
	return apps, nil
}

func (repo applicationRepository) UpdateProgress(ctx context.Context, id string, progress int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "UPDATE applications SET progress = $1 WHERE id = $2", progress, id)
	return checkAffected(res, err, "updating progress")
}

// SetDecision records the decision in the approved_* or rejected_* columns, depending on status.
func (repo applicationRepository) SetDecision(ctx context.Context, id string, status application.Status, decision application.Decision, exec ...core.DBExecutor) error {
	var q string
	args := []interface{}{string(status), decision.DecidedAt.UTC(), decision.DecidedBy}
	switch status {
	case application.StatusApproved:
		q = `UPDATE applications SET status = $1, approved_at = $2, approved_by = $3 WHERE id = $4`
	case application.StatusRejected:
		q = `UPDATE applications SET status = $1, rejected_at = $2, rejected_by = $3, rejection_reason = $4 WHERE id = $5`
		args = append(args, decision.RejectionReason)
	default:
		return errors.Errorf("cannot decide with status %q", status)
	}
	args = append(args, id)
	res, err := repo.getExec(exec).ExecContext(ctx, q, args...)
	return checkAffected(res, err, "setting decision")
}

// DeleteApplication relies on ON DELETE CASCADE for documents and comments.
func (repo applicationRepository) DeleteApplication(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM applications WHERE id = $1", id)
	return checkAffected(res, err, "deleting application")
}
