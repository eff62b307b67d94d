package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/application"
)

type applicationRepository struct {
	db *DB
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *DB) *applicationRepository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) CreateApplication(_ context.Context, app application.Application, _ ...core.DBExecutor) (application.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.applications[app.ID]; ok {
		return application.Application{}, errors.Errorf("application %q already exists", app.ID)
	}
	app.Documents, app.Comments = nil, nil
	repo.db.applications[app.ID] = app
	return app, nil
}

func (repo *applicationRepository) GetApplication(_ context.Context, id string, _ ...core.DBExecutor) (application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if app, ok := repo.db.applications[id]; ok {
		return app, nil
	}
	return application.Application{}, core.ErrNotFound
}

func (repo *applicationRepository) QueryApplications(_ context.Context, filter *application.QueryFilter, _ ...core.DBExecutor) ([]application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	apps := make([]application.Application, 0, len(repo.db.applications))
	for _, app := range repo.db.applications {
		if filter != nil {
			if filter.Status != "" && string(app.Status) != filter.Status {
				continue
			}
			if filter.StudentEmail != "" && app.StudentEmail != filter.StudentEmail {
				continue
			}
			if s := strings.ToLower(filter.Search); s != "" &&
				!strings.Contains(strings.ToLower(app.University), s) && !strings.Contains(strings.ToLower(app.StudentName), s) {
				continue
			}
		}
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].CreatedAt.Equal(apps[j].CreatedAt) {
			return apps[i].CreatedAt.After(apps[j].CreatedAt)
		}
		return apps[i].ID < apps[j].ID
	})
	return apps, nil
}

func (repo *applicationRepository) UpdateProgress(_ context.Context, id string, progress int, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	app, ok := repo.db.applications[id]
	if !ok {
		return core.ErrNotFound
	}
	app.Progress = progress
	repo.db.applications[id] = app
	return nil
}

func (repo *applicationRepository) SetDecision(_ context.Context, id string, status application.Status, decision application.Decision, _ ...core.DBExecutor) error {
	if !status.IsFinal() {
		return errors.Errorf("cannot decide with status %q", status)
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	app, ok := repo.db.applications[id]
	if !ok {
		return core.ErrNotFound
	}
	app.Status = status
	app.Decision = &decision
	repo.db.applications[id] = app
	return nil
}

func (repo *applicationRepository) DeleteApplication(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.applications[id]; !ok {
		return core.ErrNotFound
	}
	delete(repo.db.applications, id)
	for docID, d := range repo.db.documents {
		if d.ApplicationID == id {
			delete(repo.db.documents, docID)
		}
	}
	for cID, c := range repo.db.comments {
		if c.ApplicationID == id {
			delete(repo.db.comments, cID)
		}
	}
	return nil
}
