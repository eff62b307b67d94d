package user

import (
	"context"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
)

var (
	// errors
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrDeleteSelf           = errors.New("you cannot delete your own account")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUser(ctx context.Context, email string, exec ...core.DBExecutor) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Create(ctx context.Context, requester core.Identity, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd, role string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Query(ctx context.Context, requester core.Identity, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateProfile(ctx context.Context, requester core.Identity, up UpdateProfile) (User, error)
		ChangePassword(ctx context.Context, requester core.Identity, cp ChangePassword) error
		SetPassword(ctx context.Context, email, pwd string) error
		Delete(ctx context.Context, requester core.Identity, email string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *service) create(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Email:     nu.Email,
		Name:      nu.Name,
		Faculty:   nu.Faculty,
		Role:      nu.Role,
		CreatedAt: core.Now(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

// Register creates a student account. Administrators are created by other administrators.
func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Role = core.RoleStudent
	return svc.create(ctx, nu)
}

func (svc *service) Create(ctx context.Context, requester core.Identity, nu NewUser) (User, error) {
	if !requester.IsAdmin() {
		return User{}, core.ErrForbidden
	}
	if nu.Role == "" {
		nu.Role = core.RoleStudent
	}
	return svc.create(ctx, nu)
}

// Authenticate checks the credentials and that the account belongs to the selected portal.
func (svc *service) Authenticate(ctx context.Context, email, pwd, role string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if !usr.CheckPassword(pwd) {
		return User{}, ErrAuthenticationFailed
	}
	if role != "" && usr.Role != role {
		return User{}, ErrAuthenticationFailed
	}
	return usr, nil
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Query(ctx context.Context, requester core.Identity, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if !requester.IsAdmin() {
		return nil, core.ErrForbidden
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) UpdateProfile(ctx context.Context, requester core.Identity, up UpdateProfile) (User, error) {
	usr, err := svc.GetByEmail(ctx, requester.Email)
	if err != nil {
		return User{}, errors.Wrap(err, "finding user by email")
	}
	usr.Name = up.Name
	usr.Faculty = up.Faculty
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *service) ChangePassword(ctx context.Context, requester core.Identity, cp ChangePassword) error {
	usr, err := svc.GetByEmail(ctx, requester.Email)
	if err != nil {
		return errors.Wrap(err, "finding user by email")
	}
	if !usr.CheckPassword(cp.CurrentPassword) {
		return core.NewValidationError(ErrWrongPassword, core.FieldError{Field: "current_password", Error: ErrWrongPassword.Error()})
	}
	if err = usr.SetPassword(cp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}

// SetPassword replaces the password of a user without checking the current one.
func (svc *service) SetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}

func (svc *service) Delete(ctx context.Context, requester core.Identity, email string) error {
	if !requester.IsAdmin() {
		return core.ErrForbidden
	}
	email = core.CleanString(email, true /* lower */)
	// Say No to Suicide! an admin cannot delete themselves
	if email == requester.Email {
		return core.NewValidationError(ErrDeleteSelf)
	}
	if _, err := svc.repo.GetUserByEmail(ctx, email); err != nil {
		return err
	}
	return svc.repo.DeleteUser(ctx, email)
}
