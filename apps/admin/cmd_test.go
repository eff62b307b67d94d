package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/user"
	"github.com/erasmushub/erasmushub/storage/database"
	"github.com/erasmushub/erasmushub/storage/legacy"
	"github.com/erasmushub/erasmushub/tests"
)

var env *testutil.Env

func setup(t *testing.T) *commandLine {
	env = testutil.NewEnv(t)

	// start CLI
	return &commandLine{
		usrRepo: env.UserRepo,
		usrSvc:  user.NewService(env.UserRepo),
		importer: legacy.NewImporter(legacy.Deps{
			Tx:            env.Tx,
			Users:         env.UserRepo,
			Applications:  env.ApplicationRepo,
			Documents:     env.DocumentRepo,
			Comments:      env.CommentRepo,
			Messages:      env.MessageRepo,
			Announcements: env.AnnouncementRepo,
			Logger:        env.Logger,
		}),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
		}
		return
	}
	if tt.wantErr != nil {
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	} else if tt.wantErrStr != "" {
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	} else {
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = database.RunMigrations })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "exchange_slots", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	existing := testutil.CreateUser(t, env.UserRepo, "ana@uni.pt", "Ana", core.RoleStudent, "old-pass")

	type extra struct {
		pwd       string
		email     string
		wantName  string
		wantRole  string
		wantCheck string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "-email", "bob@uni.pt"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "bob@uni.pt", "-name", "Bob"}, wantErr: errHelp},
		{
			name:  "create student",
			args:  []string{"adduser", "-email", " Bob@Uni.pt ", "-name", "Bob"},
			extra: extra{pwd: "bob-pass", email: "bob@uni.pt", wantName: "Bob", wantRole: core.RoleStudent, wantCheck: "bob-pass"},
		},
		{
			name:  "create admin",
			args:  []string{"adduser", "-email", "office@uni.pt", "-name", "Office", "-admin"},
			extra: extra{pwd: "office-pass", email: "office@uni.pt", wantName: "Office", wantRole: core.RoleAdmin, wantCheck: "office-pass"},
		},
		{
			name:  "update existing",
			args:  []string{"adduser", "-email", existing.Email, "-name", "Ana Maria", "-admin"},
			extra: extra{pwd: "new-pass", email: existing.Email, wantName: "Ana Maria", wantRole: core.RoleAdmin, wantCheck: "new-pass"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		ext, hasExtra := tt.extra.(extra)
		mockPassword(ext.pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
			if !hasExtra {
				return
			}
			usr, err := env.UserRepo.GetUserByEmail(context.Background(), ext.email)
			if err != nil {
				t.Fatalf("GetUserByEmail() failed, %v", err)
			}
			if usr.Name != ext.wantName || usr.Role != ext.wantRole {
				t.Errorf("user = %s (%s), want %s (%s)", usr.Name, usr.Role, ext.wantName, ext.wantRole)
			}
			if !usr.CheckPassword(ext.wantCheck) {
				t.Error("password was not set")
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, env.UserRepo, "awe@uni.pt", "Awe", core.RoleStudent, "mdr")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@uni.pt"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@uni.pt"}, extra: extra{pwd: "lol"}, wantErr: core.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		ext, _ := tt.extra.(extra)
		mockPassword(ext.pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := env.UserRepo.GetUserByEmail(context.Background(), usr.Email)
				if err != nil {
					t.Fatalf("GetUserByEmail() failed, %v", err)
				}
				if refreshedUsr.Password == usr.Password || !refreshedUsr.CheckPassword(ext.pwd) {
					t.Error("failed to update new password")
				}
			}
		})
	}
}

func Test_commandLine_import(t *testing.T) {
	cli := setup(t)

	dir := t.TempDir()
	users := `{"eva@uni.pt": {"name": "Eva", "role": "student", "password": "eva-pass"}}`
	usersFile := filepath.Join(dir, legacy.UsersFile)
	if err := os.WriteFile(usersFile, []byte(users), 0o600); err != nil {
		t.Fatalf("WriteFile() failed, %v", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"import"}, wantErr: errHelp},
		{name: "not a directory", args: []string{"import", "-dir", usersFile}, wantErrStr: usersFile + " is not a directory"},
		{name: "import", args: []string{"import", "-dir", dir}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	usr, err := env.UserRepo.GetUserByEmail(context.Background(), "eva@uni.pt")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed, %v", err)
	}
	if !usr.CheckPassword("eva-pass") {
		t.Error("imported password does not match")
	}
}
