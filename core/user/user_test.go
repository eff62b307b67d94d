package user_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/user"
	inmemdb "github.com/erasmushub/erasmushub/storage/database/inmem"
	testutil "github.com/erasmushub/erasmushub/tests"
)

var ctx = context.Background()

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func pbkdf2Hex(pwd, salt string, iterations int) string {
	return hex.EncodeToString(pbkdf2.Key([]byte(pwd), []byte(salt), iterations, 32, sha256.New))
}

func TestUser_CheckPassword(t *testing.T) {
	var usr user.User
	require.NoError(t, usr.SetPassword("s3cr3t-pass"))
	assert.True(t, user.IsPasswordHash(usr.Password))
	assert.True(t, usr.CheckPassword("s3cr3t-pass"))
	assert.False(t, usr.CheckPassword("wrong"))

	tests := []struct {
		name   string
		stored string
		pwd    string
		want   bool
	}{
		{"pbkdf2", "pbkdf2:sha256:1000$abcdefgh$" + pbkdf2Hex("secret", "abcdefgh", 1000), "secret", true},
		{"pbkdf2 wrong password", "pbkdf2:sha256:1000$abcdefgh$" + pbkdf2Hex("secret", "abcdefgh", 1000), "Secret", false},
		{"pbkdf2 unknown hash", "pbkdf2:md5:1000$abcdefgh$00", "secret", false},
		{"pbkdf2 malformed", "pbkdf2:sha256", "secret", false},
		{"plain text", "legacy", "legacy", true},
		{"plain text mismatch", "legacy", "other", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, user.User{Password: tt.stored}.CheckPassword(tt.pwd))
		})
	}
}

func TestNewUser_Validate(t *testing.T) {
	validate := newValidator()
	svc := user.NewService(inmemdb.NewUserRepository(inmemdb.Open()))

	tests := []struct {
		name       string
		nu         user.NewUser
		wantFields []string
	}{
		{
			name: "valid",
			nu:   user.NewUser{Email: " Ada@Uni.SK ", Name: "Ada", Password: "hunter22", PasswordConfirm: "hunter22"},
		},
		{
			name:       "blank",
			nu:         user.NewUser{Email: "ada@uni.sk", Name: "   "},
			wantFields: []string{"name", "password", "password_confirm"},
		},
		{
			name:       "bad email and role",
			nu:         user.NewUser{Email: "not-an-email", Name: "Ada", Role: "dean", Password: "hunter22", PasswordConfirm: "hunter22"},
			wantFields: []string{"email", "role"},
		},
		{
			name:       "short password",
			nu:         user.NewUser{Email: "ada@uni.sk", Name: "Ada", Password: "abc", PasswordConfirm: "abc"},
			wantFields: []string{"password"},
		},
		{
			name:       "password similar to email",
			nu:         user.NewUser{Email: "adalovelace@uni.sk", Name: "Ada", Password: "adalovelace1", PasswordConfirm: "adalovelace1"},
			wantFields: []string{"password"},
		},
		{
			name:       "confirmation mismatch",
			nu:         user.NewUser{Email: "ada@uni.sk", Name: "Ada", Password: "hunter22", PasswordConfirm: "hunter23"},
			wantFields: []string{"password_confirm"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(ctx, validate, svc)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestService(t *testing.T) {
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	svc := user.NewService(repo)
	admin := testutil.CreateUser(t, repo, "office@uni.sk", "Erasmus Office", core.RoleAdmin, "office-pass")

	t.Run("Register creates students only", func(t *testing.T) {
		usr, err := svc.Register(ctx, user.NewUser{Email: "ada@uni.sk", Name: "Ada", Role: core.RoleAdmin, Password: "hunter22"})
		require.NoError(t, err)
		assert.Equal(t, core.RoleStudent, usr.Role)
		assert.True(t, usr.CheckPassword("hunter22"))
	})

	t.Run("CheckUniqueness", func(t *testing.T) {
		err := svc.CheckUniqueness(ctx, "ada@uni.sk")
		assert.True(t, core.IsValidationError(err))
		usr, err := svc.GetByEmail(ctx, "ADA@uni.sk ")
		require.NoError(t, err)
		assert.NoError(t, svc.CheckUniqueness(ctx, "ada@uni.sk", usr))
	})

	t.Run("Create", func(t *testing.T) {
		_, err := svc.Create(ctx, core.Identity{Email: "ada@uni.sk", Role: core.RoleStudent}, user.NewUser{Email: "x@uni.sk"})
		assert.Equal(t, core.ErrForbidden, err)

		usr, err := svc.Create(ctx, admin.Identity(), user.NewUser{Email: "reviewer@uni.sk", Name: "Reviewer", Role: core.RoleAdmin, Password: "review-pass"})
		require.NoError(t, err)
		assert.Equal(t, core.RoleAdmin, usr.Role)
	})

	t.Run("Authenticate", func(t *testing.T) {
		usr, err := svc.Authenticate(ctx, "ada@uni.sk", "hunter22", core.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, "ada@uni.sk", usr.Email)

		_, err = svc.Authenticate(ctx, "ada@uni.sk", "hunter22", core.RoleAdmin)
		assert.Equal(t, user.ErrAuthenticationFailed, err, "wrong portal")
		_, err = svc.Authenticate(ctx, "ada@uni.sk", "nope", "")
		assert.Equal(t, user.ErrAuthenticationFailed, err)
		_, err = svc.Authenticate(ctx, "ghost@uni.sk", "hunter22", "")
		assert.Equal(t, user.ErrAuthenticationFailed, err)
	})

	t.Run("UpdateProfile and ChangePassword", func(t *testing.T) {
		ada := core.Identity{Email: "ada@uni.sk", Role: core.RoleStudent}
		usr, err := svc.UpdateProfile(ctx, ada, user.UpdateProfile{Name: "Ada Lovelace", Faculty: "FIIT"})
		require.NoError(t, err)
		assert.Equal(t, "FIIT", usr.Faculty)

		err = svc.ChangePassword(ctx, ada, user.ChangePassword{CurrentPassword: "bad", Password: "n3w-pass"})
		assert.True(t, core.IsValidationError(err))
		require.NoError(t, svc.ChangePassword(ctx, ada, user.ChangePassword{CurrentPassword: "hunter22", Password: "n3w-pass"}))
		_, err = svc.Authenticate(ctx, "ada@uni.sk", "n3w-pass", "")
		assert.NoError(t, err)
	})

	t.Run("Query", func(t *testing.T) {
		_, err := svc.Query(ctx, core.Identity{Role: core.RoleStudent}, nil, nil)
		assert.Equal(t, core.ErrForbidden, err)

		students, err := svc.Query(ctx, admin.Identity(), &user.QueryFilter{Role: core.RoleStudent}, nil)
		require.NoError(t, err)
		require.Len(t, students, 1)
		assert.Equal(t, "ada@uni.sk", students[0].Email)
	})

	t.Run("Delete", func(t *testing.T) {
		err := svc.Delete(ctx, admin.Identity(), admin.Email)
		assert.True(t, core.IsValidationError(err))
		assert.Equal(t, core.ErrNotFound, svc.Delete(ctx, admin.Identity(), "ghost@uni.sk"))
		require.NoError(t, svc.Delete(ctx, admin.Identity(), "reviewer@uni.sk"))
		_, err = svc.GetByEmail(ctx, "reviewer@uni.sk")
		assert.Equal(t, core.ErrNotFound, err)
	})
}
