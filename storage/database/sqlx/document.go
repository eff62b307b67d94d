package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/document"
)

const documentColumns = "id, application_id, document_key, document_label, filename, status, uploaded_at"

type documentRow struct {
	ID            int64     `db:"id"`
	ApplicationID string    `db:"application_id"`
	Key           string    `db:"document_key"`
	Label         string    `db:"document_label"`
	Filename      string    `db:"filename"`
	Status        string    `db:"status"`
	UploadedAt    time.Time `db:"uploaded_at"`
}

func (row documentRow) document() document.Document {
	return document.Document{
		ID:            row.ID,
		ApplicationID: row.ApplicationID,
		Key:           row.Key,
		Label:         row.Label,
		Filename:      row.Filename,
		Status:        document.Status(row.Status),
		UploadedAt:    row.UploadedAt.UTC(),
	}
}

func documentsFromRows(rows []documentRow) []document.Document {
	docs := make([]document.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.document())
	}
	return docs
}

type documentRepository struct {
	repository
}

var _ document.Repository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(exec core.DBExecutor) *documentRepository {
	return &documentRepository{repository{exec: exec}}
}

func (repo documentRepository) CreateDocument(ctx context.Context, doc document.Document, exec ...core.DBExecutor) (document.Document, error) {
	if doc.Status == "" {
		doc.Status = document.StatusSubmitted
	}
	const q = `INSERT INTO documents (application_id, document_key, document_label, filename, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := repo.getExec(exec).QueryRowxContext(ctx, q,
		doc.ApplicationID, doc.Key, doc.Label, doc.Filename, string(doc.Status), doc.UploadedAt.UTC(),
	).Scan(&doc.ID)
	if err != nil {
		return document.Document{}, errors.Wrap(err, "inserting document")
	}
	return doc, nil
}

func (repo documentRepository) GetDocument(ctx context.Context, id int64, exec ...core.DBExecutor) (document.Document, error) {
	var row documentRow
	err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+documentColumns+" FROM documents WHERE id = $1", id)
	if err != nil {
		return document.Document{}, trapNoRowsErr(err, "finding document")
	}
	return row.document(), nil
}

func (repo documentRepository) ListDocuments(ctx context.Context, applicationID string, exec ...core.DBExecutor) ([]document.Document, error) {
	var rows []documentRow
	q := "SELECT " + documentColumns + " FROM documents WHERE application_id = $1 ORDER BY id"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, applicationID); err != nil {
		return nil, errors.Wrap(err, "listing documents")
	}
	return documentsFromRows(rows), nil
}

func (repo documentRepository) ListAllDocuments(ctx context.Context, applicationIDs []string, exec ...core.DBExecutor) ([]document.Document, error) {
	if len(applicationIDs) == 0 {
		return []document.Document{}, nil
	}
	var rows []documentRow
	q := "SELECT " + documentColumns + " FROM documents WHERE application_id = ANY($1) ORDER BY id"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, pq.Array(applicationIDs)); err != nil {
		return nil, errors.Wrap(err, "listing documents")
	}
	return documentsFromRows(rows), nil
}

func (repo documentRepository) ReplaceDocumentFile(ctx context.Context, id int64, filename string, uploadedAt time.Time, exec ...core.DBExecutor) error {
	const q = `UPDATE documents SET filename = $1, uploaded_at = $2, status = $3 WHERE id = $4`
	res, err := repo.getExec(exec).ExecContext(ctx, q, filename, uploadedAt.UTC(), string(document.StatusSubmitted), id)
	return checkAffected(res, err, "replacing document file")
}

func (repo documentRepository) SetDocumentStatus(ctx context.Context, id int64, status document.Status, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "UPDATE documents SET status = $1 WHERE id = $2", string(status), id)
	return checkAffected(res, err, "setting document status")
}

func (repo documentRepository) DeleteDocument(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM documents WHERE id = $1", id)
	return checkAffected(res, err, "deleting document")
}
