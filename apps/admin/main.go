package main

import (
	"log"
	"os"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/user"
	logsvc "github.com/erasmushub/erasmushub/services/logger"
	"github.com/erasmushub/erasmushub/storage/database"
	sqlxrepos "github.com/erasmushub/erasmushub/storage/database/sqlx"
	"github.com/erasmushub/erasmushub/storage/legacy"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapFromConfig(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewZapLogger(zl.Named("ADMIN"))

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:      db.DB,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo),
		importer: legacy.NewImporter(legacy.Deps{
			Tx:            database.NewTransactor(db),
			Users:         usrRepo,
			Applications:  sqlxrepos.NewApplicationRepository(db),
			Documents:     sqlxrepos.NewDocumentRepository(db),
			Comments:      sqlxrepos.NewCommentRepository(db),
			Messages:      sqlxrepos.NewMessageRepository(db),
			Announcements: sqlxrepos.NewAnnouncementRepository(db),
			Logger:        logger,
		}),
	}

	// start CLI
	runErr := cli.run(os.Args)
	_ = zl.Sync()
	if err = db.Close(); err != nil {
		logger.Error("closing database", err)
	}
	if runErr != nil {
		if runErr != errHelp {
			logger.Error(runErr.Error(), runErr)
		}
		os.Exit(1)
	}
}
