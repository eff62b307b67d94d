package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	usr, ok := repo.db.users[email]
	if !ok {
		return nil
	}
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return nil
		}
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[usr.Email]; ok {
		return user.User{}, user.ErrEmailExists
	}
	repo.db.userPK++
	usr.ID = int(repo.db.userPK)
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = core.Now()
	}
	repo.db.users[usr.Email] = usr
	return usr, nil
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[email]; ok {
		return usr, nil
	}
	return user.User{}, core.ErrNotFound
}

func userCompare(field string) func(a, b user.User) int {
	switch field {
	case "email":
		return func(a, b user.User) int { return strings.Compare(a.Email, b.Email) }
	case "name":
		return func(a, b user.User) int { return strings.Compare(a.Name, b.Name) }
	case "role":
		return func(a, b user.User) int { return strings.Compare(a.Role, b.Role) }
	case "created_at":
		return func(a, b user.User) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case "id":
		return func(a, b user.User) int { return a.ID - b.ID }
	}
	return nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil {
			if filter.Role != "" && usr.Role != filter.Role {
				continue
			}
			if s := strings.ToLower(filter.Search); s != "" &&
				!strings.Contains(strings.ToLower(usr.Name), s) && !strings.Contains(strings.ToLower(usr.Email), s) {
				continue
			}
		}
		users = append(users, usr)
	}

	ords := append(append([]core.DBOrdering{}, ordering...), core.DBOrdering{Field: "id", Ascending: true})
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ords {
			cmp := userCompare(ord.Field)
			if cmp == nil {
				continue
			}
			c := cmp(users[i], users[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.users[usr.Email]
	if !ok {
		return user.User{}, core.ErrNotFound
	}
	usr.ID, usr.CreatedAt = orig.ID, orig.CreatedAt
	repo.db.users[usr.Email] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, email string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[email]; !ok {
		return core.ErrNotFound
	}
	delete(repo.db.users, email)
	return nil
}
