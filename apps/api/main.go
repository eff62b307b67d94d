package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	echoapi "github.com/erasmushub/erasmushub/apps/api/echo"
	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/announcement"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/dashboard"
	"github.com/erasmushub/erasmushub/core/document"
	"github.com/erasmushub/erasmushub/core/message"
	"github.com/erasmushub/erasmushub/core/user"
	emailsvc "github.com/erasmushub/erasmushub/services/email"
	"github.com/erasmushub/erasmushub/services/filestore"
	logsvc "github.com/erasmushub/erasmushub/services/logger"
	"github.com/erasmushub/erasmushub/services/metrics"
	"github.com/erasmushub/erasmushub/services/ratelimit"
	"github.com/erasmushub/erasmushub/storage/database"
	sqlxrepos "github.com/erasmushub/erasmushub/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl, err := logsvc.NewZapFromConfig(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("API"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer logger.Sync()

	dbLogger := logsvc.NewRollbarLogger(zl.Named("DB"), conf)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up infrastructure services
	mailSvc, err := newMailService(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up mail backend: %v", err), err)
	}
	files, err := filestore.NewDisk(conf.Uploads.Dir)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}
	prom := metrics.New("erasmushub")

	var limiter ratelimit.Limiter = ratelimit.NewMemory()
	if conf.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		defer rdb.Close()
		limiter = ratelimit.NewRedis(rdb, "erasmushub:ratelimit:")
	}

	// set up domain services
	usrRepo := sqlxrepos.NewUserRepository(db)
	docRepo := sqlxrepos.NewDocumentRepository(db)

	usrSvc := user.NewService(usrRepo)
	appSvc := application.NewService(
		application.Deps{
			Tx:          database.NewTransactor(db),
			Repo:        sqlxrepos.NewApplicationRepository(db),
			DocRepo:     docRepo,
			CommentRepo: sqlxrepos.NewCommentRepository(db),
			Files:       files,
			MailSvc:     mailSvc,
			Logger:      logger,
			Metrics:     prom,
		},
		application.NewOptions(conf),
	)
	annSvc := announcement.NewService(sqlxrepos.NewAnnouncementRepository(db))
	msgSvc := message.NewService(sqlxrepos.NewMessageRepository(db))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	announcement.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger, false /* strict */)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			Limiter:         limiter,
			MetricsHandler:  prom.Handler(),
			UserSvc:         usrSvc,
			ApplicationSvc:  appSvc,
			DocumentSvc:     document.NewService(docRepo),
			AnnouncementSvc: annSvc,
			MessageSvc:      msgSvc,
			DashboardSvc:    dashboard.NewService(appSvc, annSvc, msgSvc, usrRepo),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newMailService(conf *core.Config, logger core.Logger) (core.EmailService, error) {
	switch conf.Mail.Backend {
	case "sendgrid":
		return emailsvc.NewSendgridService(conf, logger), nil
	case "ses":
		svc, err := emailsvc.NewSESService(context.Background(), conf, logger)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return emailsvc.NewConsoleService(conf, logger), nil
	}
}
