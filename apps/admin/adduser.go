package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(email, name, pwd string, isAdmin bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != core.ErrNotFound {
			return err
		}
		usr = user.User{Email: email, CreatedAt: core.Now()}
	}
	usr.Name = name
	usr.Role = core.RoleStudent
	if isAdmin {
		usr.Role = core.RoleAdmin
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
