package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/erasmushub/erasmushub/core/user"
	"github.com/erasmushub/erasmushub/storage/legacy"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type importer interface {
	Import(ctx context.Context, dir string) (legacy.Summary, error)
}

type commandLine struct {
	db       *sql.DB
	usrRepo  user.Repository
	usrSvc   user.Service
	importer importer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                     - run a goose command (up, down, status, ...)")
	fmt.Println("  adduser -email EMAIL -name NAME [-admin]   - create or update a user")
	fmt.Println("  resetpassword -email EMAIL                 - reset user's password")
	fmt.Println("  import -dir DIR                            - import the legacy JSON files of DIR")
}

func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant the admin role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importDir := importCmd.String("dir", "", "The directory holding users.json, applications.json, messages.json and announcements.json.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserEmail, *addUserName, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importDir == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importLegacy(*importDir)

	default:
		cli.printUsage()
		return errHelp
	}
}
