package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/announcement"
)

type announcementRepository struct {
	db *DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) *announcementRepository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, a announcement.Announcement, _ ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.announcements[a.ID]; ok {
		return announcement.Announcement{}, errors.Errorf("announcement %q already exists", a.ID)
	}
	repo.db.announcements[a.ID] = a
	return a, nil
}

func (repo *announcementRepository) GetAnnouncement(_ context.Context, id string, _ ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.announcements[id]; ok {
		return a, nil
	}
	return announcement.Announcement{}, core.ErrNotFound
}

func (repo *announcementRepository) QueryAnnouncements(_ context.Context, limit int, _ ...core.DBExecutor) ([]announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	anns := make([]announcement.Announcement, 0, len(repo.db.announcements))
	for _, a := range repo.db.announcements {
		anns = append(anns, a)
	}
	sort.Slice(anns, func(i, j int) bool {
		if !anns[i].CreatedAt.Equal(anns[j].CreatedAt) {
			return anns[i].CreatedAt.After(anns[j].CreatedAt)
		}
		return anns[i].ID < anns[j].ID
	})
	if limit > 0 && len(anns) > limit {
		anns = anns[:limit]
	}
	return anns, nil
}

func (repo *announcementRepository) UpdateAnnouncement(_ context.Context, a announcement.Announcement, _ ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.announcements[a.ID]; !ok {
		return announcement.Announcement{}, core.ErrNotFound
	}
	repo.db.announcements[a.ID] = a
	return a, nil
}

func (repo *announcementRepository) DeleteAnnouncement(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.announcements[id]; !ok {
		return core.ErrNotFound
	}
	delete(repo.db.announcements, id)
	return nil
}
