package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/document"
)

type documentRepository struct {
	db *DB
}

var _ document.Repository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(db *DB) *documentRepository {
	return &documentRepository{db: db}
}

func (repo *documentRepository) CreateDocument(_ context.Context, doc document.Document, _ ...core.DBExecutor) (document.Document, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.applications[doc.ApplicationID]; !ok {
		return document.Document{}, errors.Errorf("application %q does not exist", doc.ApplicationID)
	}
	if doc.Status == "" {
		doc.Status = document.StatusSubmitted
	}
	repo.db.documentPK++
	doc.ID = repo.db.documentPK
	repo.db.documents[doc.ID] = doc
	return doc, nil
}

func (repo *documentRepository) GetDocument(_ context.Context, id int64, _ ...core.DBExecutor) (document.Document, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if doc, ok := repo.db.documents[id]; ok {
		return doc, nil
	}
	return document.Document{}, core.ErrNotFound
}

func (repo *documentRepository) list(keep func(document.Document) bool) []document.Document {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	docs := make([]document.Document, 0)
	for _, d := range repo.db.documents {
		if keep(d) {
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (repo *documentRepository) ListDocuments(_ context.Context, applicationID string, _ ...core.DBExecutor) ([]document.Document, error) {
	return repo.list(func(d document.Document) bool { return d.ApplicationID == applicationID }), nil
}

func (repo *documentRepository) ListAllDocuments(_ context.Context, applicationIDs []string, _ ...core.DBExecutor) ([]document.Document, error) {
	ids := make(map[string]struct{}, len(applicationIDs))
	for _, id := range applicationIDs {
		ids[id] = struct{}{}
	}
	return repo.list(func(d document.Document) bool {
		_, ok := ids[d.ApplicationID]
		return ok
	}), nil
}

func (repo *documentRepository) update(id int64, fn func(*document.Document)) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	doc, ok := repo.db.documents[id]
	if !ok {
		return core.ErrNotFound
	}
	fn(&doc)
	repo.db.documents[id] = doc
	return nil
}

func (repo *documentRepository) ReplaceDocumentFile(_ context.Context, id int64, filename string, uploadedAt time.Time, _ ...core.DBExecutor) error {
	return repo.update(id, func(d *document.Document) {
		d.Filename, d.UploadedAt, d.Status = filename, uploadedAt, document.StatusSubmitted
	})
}

func (repo *documentRepository) SetDocumentStatus(_ context.Context, id int64, status document.Status, _ ...core.DBExecutor) error {
	return repo.update(id, func(d *document.Document) { d.Status = status })
}

func (repo *documentRepository) DeleteDocument(_ context.Context, id int64, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.documents[id]; !ok {
		return core.ErrNotFound
	}
	delete(repo.db.documents, id)
	return nil
}
