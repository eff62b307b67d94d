package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/user"
)

const userColumns = "id, email, password, role, name, faculty, created_at"

var userOrderColumns = map[string]bool{"id": true, "email": true, "name": true, "role": true, "created_at": true}

type userRow struct {
	ID        int         `db:"id"`
	Email     string      `db:"email"`
	Password  string      `db:"password"`
	Role      string      `db:"role"`
	Name      null.String `db:"name"`
	Faculty   null.String `db:"faculty"`
	CreatedAt null.Time   `db:"created_at"`
}

func (row userRow) user() user.User {
	return user.User{
		ID:        row.ID,
		Email:     row.Email,
		Password:  row.Password,
		Role:      row.Role,
		Name:      row.Name.String,
		Faculty:   row.Faculty.String,
		CreatedAt: row.CreatedAt.Time.UTC(),
	}
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	where := whereClause{}
	where.add("email = ?", email)
	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		where.add("id NOT IN (?)", ids)
	}

	query, args, err := sqlx.In("SELECT EXISTS (SELECT 1 FROM users"+where.String()+")", where.args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	exe := repo.getExec(exec)
	var exists bool
	if err = exe.GetContext(ctx, &exists, exe.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = core.Now()
	}
	const q = `INSERT INTO users (email, password, role, name, faculty, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := repo.getExec(exec).QueryRowxContext(ctx, q,
		usr.Email, usr.Password, usr.Role,
		null.NewString(usr.Name, usr.Name != ""),
		null.NewString(usr.Faculty, usr.Faculty != ""),
		usr.CreatedAt.UTC(),
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, "finding user by email")
	}
	return row.user(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	where := whereClause{}
	if filter != nil {
		// users with Name or Email matching the search keyword
		if filter.Search != "" {
			val := likePattern(filter.Search)
			where.add("(name ILIKE ? OR email ILIKE ?)", val, val)
		}
		if filter.Role != "" {
			where.add("role = ?", filter.Role)
		}
	}

	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if userOrderColumns[ord.Field] {
			orderList = append(orderList, ord.String())
		}
	}
	if len(orderList) == 0 {
		orderList = append(orderList, "id ASC")
	}

	exe := repo.getExec(exec)
	query := "SELECT " + userColumns + " FROM users" + where.String() + " ORDER BY " + strings.Join(orderList, ", ")
	var rows []userRow
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(query), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	const q = `UPDATE users SET password = $1, role = $2, name = $3, faculty = $4 WHERE email = $5`
	res, err := repo.getExec(exec).ExecContext(ctx, q,
		usr.Password, usr.Role,
		null.NewString(usr.Name, usr.Name != ""),
		null.NewString(usr.Faculty, usr.Faculty != ""),
		usr.Email,
	)
	if err = checkAffected(res, err, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) DeleteUser(ctx context.Context, email string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM users WHERE email = $1", email)
	return checkAffected(res, err, "deleting user")
}
