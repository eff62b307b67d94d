package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/announcement"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/comment"
	"github.com/erasmushub/erasmushub/core/document"
	"github.com/erasmushub/erasmushub/core/message"
	"github.com/erasmushub/erasmushub/core/user"
	emailsvc "github.com/erasmushub/erasmushub/services/email"
	"github.com/erasmushub/erasmushub/services/filestore"
	logsvc "github.com/erasmushub/erasmushub/services/logger"
	inmemdb "github.com/erasmushub/erasmushub/storage/database/inmem"
)

// PDFContent is sniffed as application/pdf.
var PDFContent = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// PDF returns a valid upload for a checklist key.
func PDF(key, filename string) document.Upload {
	return document.Upload{Key: key, Filename: filename, Content: PDFContent}
}

// Env wires the in-memory repositories with the test doubles of every service dependency.
type Env struct {
	Conf    *core.Config
	Logger  core.Logger
	DB      *inmemdb.DB
	Tx      core.Transactor
	Files   *filestore.Memory
	MailSvc core.EmailService

	UserRepo         user.Repository
	ApplicationRepo  application.Repository
	DocumentRepo     document.Repository
	CommentRepo      comment.Repository
	AnnouncementRepo announcement.Repository
	MessageRepo      message.Repository
}

func NewEnv(t testing.TB) *Env {
	conf := core.NewTestConfig()
	logger := logsvc.NewTestLogger(t)
	db := inmemdb.Open()
	core.ParseEmailTemplates(logger, true /* strict */)
	emailsvc.ClearSentMessages()
	return &Env{
		Conf:             conf,
		Logger:           logger,
		DB:               db,
		Tx:               inmemdb.NewTransactor(db),
		Files:            filestore.NewMemory(),
		MailSvc:          emailsvc.NewConsoleServiceMock(conf, logger),
		UserRepo:         inmemdb.NewUserRepository(db),
		ApplicationRepo:  inmemdb.NewApplicationRepository(db),
		DocumentRepo:     inmemdb.NewDocumentRepository(db),
		CommentRepo:      inmemdb.NewCommentRepository(db),
		AnnouncementRepo: inmemdb.NewAnnouncementRepository(db),
		MessageRepo:      inmemdb.NewMessageRepository(db),
	}
}

func (env *Env) ApplicationDeps() application.Deps {
	return application.Deps{
		Tx:          env.Tx,
		Repo:        env.ApplicationRepo,
		DocRepo:     env.DocumentRepo,
		CommentRepo: env.CommentRepo,
		Files:       env.Files,
		MailSvc:     env.MailSvc,
		Logger:      env.Logger,
		Metrics:     core.NopMetrics,
	}
}

func (env *Env) ApplicationService() application.Service {
	return application.NewService(env.ApplicationDeps(), application.NewOptions(env.Conf))
}

func CreateUser(
	t testing.TB,
	repo user.Repository,
	email, name, role, pwd string,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// FreezeTime pins core.Now to ts for the duration of the test.
func FreezeTime(t testing.TB, ts time.Time) {
	prev := core.Now
	core.Now = func() time.Time { return ts.UTC() }
	t.Cleanup(func() { core.Now = prev })
}
