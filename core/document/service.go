package document

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
)

type (
	Repository interface {
		CreateDocument(ctx context.Context, doc Document, exec ...core.DBExecutor) (Document, error)
		GetDocument(ctx context.Context, id int64, exec ...core.DBExecutor) (Document, error)
		// ListDocuments returns the documents of one application in insertion order.
		ListDocuments(ctx context.Context, applicationID string, exec ...core.DBExecutor) ([]Document, error)
		// ListAllDocuments returns the documents of the given applications, by insertion order.
		ListAllDocuments(ctx context.Context, applicationIDs []string, exec ...core.DBExecutor) ([]Document, error)
		// ReplaceDocumentFile points a record at a new stored file and resets its status to Submitted.
		ReplaceDocumentFile(ctx context.Context, id int64, filename string, uploadedAt time.Time, exec ...core.DBExecutor) error
		SetDocumentStatus(ctx context.Context, id int64, status Status, exec ...core.DBExecutor) error
		DeleteDocument(ctx context.Context, id int64, exec ...core.DBExecutor) error
	}

	Service interface {
		ListForApplication(ctx context.Context, applicationID string) ([]Document, error)
		Get(ctx context.Context, id int64) (Document, error)
		SetStatus(ctx context.Context, requester core.Identity, id int64, status string) (Document, error)
		Delete(ctx context.Context, requester core.Identity, id int64) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) ListForApplication(ctx context.Context, applicationID string) ([]Document, error) {
	return svc.repo.ListDocuments(ctx, applicationID)
}

func (svc *service) Get(ctx context.Context, id int64) (Document, error) {
	return svc.repo.GetDocument(ctx, id)
}

// SetStatus records a reviewer's verdict on a single document.
func (svc *service) SetStatus(ctx context.Context, requester core.Identity, id int64, status string) (Document, error) {
	if !requester.IsAdmin() {
		return Document{}, core.ErrForbidden
	}
	st, err := ParseStatus(status)
	if err != nil {
		return Document{}, err
	}
	if err = svc.repo.SetDocumentStatus(ctx, id, st); err != nil {
		return Document{}, errors.Wrap(err, "setting document status")
	}
	return svc.repo.GetDocument(ctx, id)
}

// Delete drops the record only. The stored file and the application's progress are left as they are.
func (svc *service) Delete(ctx context.Context, requester core.Identity, id int64) error {
	if !requester.IsAdmin() {
		return core.ErrForbidden
	}
	if err := svc.repo.DeleteDocument(ctx, id); err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return core.ErrNotFound
		}
		return errors.Wrap(err, "deleting document")
	}
	return nil
}
