package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/erasmushub/erasmushub/core"
)

var Roles = []string{core.RoleStudent, core.RoleAdmin}

type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Faculty   string    `json:"faculty"`
	Role      string    `json:"role"`
	Password  string    `json:"-"` // bcrypt hash; legacy rows may hold a pbkdf2 hash or plain text
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	u.Password = hash
	return nil
}

func (u User) CheckPassword(pwd string) bool {
	return verifyPassword(u.Password, pwd)
}

func (u User) IsAdmin() bool   { return u.Role == core.RoleAdmin }
func (u User) IsStudent() bool { return u.Role == core.RoleStudent }

func (u User) Identity() core.Identity {
	return core.Identity{Email: u.Email, Name: u.Name, Role: u.Role}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Email           string `json:"email" validate:"required,email"`
	Name            string `json:"name" validate:"required,notblank"`
	Faculty         string `json:"faculty"`
	Role            string `json:"role" validate:"omitempty,role"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Faculty = core.CleanString(nu.Faculty)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	if nu.Role == "" {
		nu.Role = core.RoleStudent
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// UpdateProfile defines what a user may change on their own profile.
type UpdateProfile struct {
	Name    string `json:"name" validate:"required,notblank"`
	Faculty string `json:"faculty"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	up.Faculty = core.CleanString(up.Faculty)
	return validate.Struct(up)
}

type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	email, name string // for the similarity check
}

func (cp *ChangePassword) Validate(validate *validator.Validate, usr User) error {
	cp.email, cp.name = usr.Email, usr.Name
	return validate.Struct(cp)
}

type QueryFilter struct {
	Search string `query:"search"`
	Role   string `query:"role"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
