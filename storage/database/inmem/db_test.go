package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/comment"
	"github.com/erasmushub/erasmushub/core/document"
	"github.com/erasmushub/erasmushub/core/message"
	"github.com/erasmushub/erasmushub/core/user"
)

var ctx = context.Background()

func newApp(id string, createdAt time.Time) application.Application {
	return application.Application{
		ID: id, StudentEmail: "ada@uni.sk", StudentName: "Ada", University: "TU Wien",
		MobilityType: "Study", Status: application.StatusSubmitted, CreatedAt: createdAt,
	}
}

func TestTransactor(t *testing.T) {
	db := Open()
	tx := NewTransactor(db)
	appRepo := NewApplicationRepository(db)
	docRepo := NewDocumentRepository(db)

	err := tx.InTx(ctx, func(exec core.DBExecutor) error {
		if _, err := appRepo.CreateApplication(ctx, newApp("a1", core.Now()), exec); err != nil {
			return err
		}
		_, err := docRepo.CreateDocument(ctx, document.Document{ApplicationID: "a1", Key: "cv"}, exec)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tx.InTx(ctx, func(exec core.DBExecutor) error {
		if _, err := docRepo.CreateDocument(ctx, document.Document{ApplicationID: "a1", Key: "plan"}, exec); err != nil {
			return err
		}
		if err := appRepo.UpdateProgress(ctx, "a1", 29, exec); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)

	app, err := appRepo.GetApplication(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 0, app.Progress)
	docs, err := docRepo.ListDocuments(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "cv", docs[0].Key)

	// primary keys are restored too
	doc, err := docRepo.CreateDocument(ctx, document.Document{ApplicationID: "a1", Key: "grades"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.ID)
}

func TestApplicationRepository_DeleteCascades(t *testing.T) {
	db := Open()
	appRepo := NewApplicationRepository(db)
	docRepo := NewDocumentRepository(db)
	commentRepo := NewCommentRepository(db)

	for _, id := range []string{"a1", "a2"} {
		_, err := appRepo.CreateApplication(ctx, newApp(id, core.Now()))
		require.NoError(t, err)
		_, err = docRepo.CreateDocument(ctx, document.Document{ApplicationID: id, Key: "cv"})
		require.NoError(t, err)
		_, err = commentRepo.CreateComment(ctx, comment.Comment{ApplicationID: id, Text: "ok"})
		require.NoError(t, err)
	}

	require.NoError(t, appRepo.DeleteApplication(ctx, "a1"))
	assert.Equal(t, core.ErrNotFound, appRepo.DeleteApplication(ctx, "a1"))

	docs, _ := docRepo.ListAllDocuments(ctx, []string{"a1", "a2"})
	require.Len(t, docs, 1)
	assert.Equal(t, "a2", docs[0].ApplicationID)
	comments, _ := commentRepo.ListComments(ctx, "a1")
	assert.Empty(t, comments)
	comments, _ = commentRepo.ListComments(ctx, "a2")
	assert.Len(t, comments, 1)
}

func TestApplicationRepository_QueryApplications(t *testing.T) {
	db := Open()
	repo := NewApplicationRepository(db)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	old := newApp("old", base)
	recent := newApp("recent", base.Add(time.Hour))
	recent.University = "Universidad de Granada"
	other := newApp("other", base.Add(2*time.Hour))
	other.StudentEmail, other.StudentName = "bob@uni.sk", "Bob"
	for _, app := range []application.Application{old, recent, other} {
		_, err := repo.CreateApplication(ctx, app)
		require.NoError(t, err)
	}
	require.NoError(t, repo.SetDecision(ctx, "old", application.StatusApproved, application.Decision{DecidedBy: "admin@uni.sk"}))

	tests := []struct {
		name   string
		filter *application.QueryFilter
		want   []string
	}{
		{name: "all newest first", want: []string{"other", "recent", "old"}},
		{name: "status", filter: &application.QueryFilter{Status: "Approved"}, want: []string{"old"}},
		{name: "student", filter: &application.QueryFilter{StudentEmail: "ada@uni.sk"}, want: []string{"recent", "old"}},
		{name: "search university", filter: &application.QueryFilter{Search: "granada"}, want: []string{"recent"}},
		{name: "search name", filter: &application.QueryFilter{Search: "bo"}, want: []string{"other"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			apps, err := repo.QueryApplications(ctx, tc.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(apps))
			for _, app := range apps {
				ids = append(ids, app.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestUserRepository(t *testing.T) {
	db := Open()
	repo := NewUserRepository(db)

	ada, err := repo.CreateUser(ctx, user.User{Email: "ada@uni.sk", Name: "Ada", Role: core.RoleStudent})
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, user.User{Email: "zoe@uni.sk", Name: "Zoe", Role: core.RoleStudent})
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, user.User{Email: "admin@uni.sk", Name: "Admin", Role: core.RoleAdmin})
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, user.User{Email: "ada@uni.sk"})
	assert.Equal(t, user.ErrEmailExists, err)
	assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "ada@uni.sk", nil))
	assert.NoError(t, repo.CheckEmailUniqueness(ctx, "ada@uni.sk", []user.User{ada}))

	users, err := repo.QueryUsers(ctx, &user.QueryFilter{Role: core.RoleStudent}, []core.DBOrdering{{Field: "name"}})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Zoe", users[0].Name)

	users, err = repo.QueryUsers(ctx, &user.QueryFilter{Search: "ADM"}, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, core.RoleAdmin, users[0].Role)

	require.NoError(t, repo.DeleteUser(ctx, "zoe@uni.sk"))
	_, err = repo.GetUserByEmail(ctx, "zoe@uni.sk")
	assert.Equal(t, core.ErrNotFound, err)
}

func TestMessageRepository_QueryMessages(t *testing.T) {
	db := Open()
	repo := NewMessageRepository(db)
	now := core.Now()

	for _, m := range []message.Message{
		{ID: "m1", FromEmail: "ada@uni.sk", FromRole: "student", ToRole: "admin", CreatedAt: now},
		{ID: "m2", FromEmail: "admin@uni.sk", FromRole: "admin", ToEmail: "ada@uni.sk", ToRole: "student", CreatedAt: now.Add(time.Minute)},
		{ID: "m3", FromEmail: "bob@uni.sk", FromRole: "student", ToRole: "admin", CreatedAt: now.Add(2 * time.Minute), IsRead: true},
	} {
		_, err := repo.CreateMessage(ctx, m)
		require.NoError(t, err)
	}

	ids := func(msgs []message.Message) []string {
		out := make([]string, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, m.ID)
		}
		return out
	}

	msgs, _ := repo.QueryMessages(ctx, message.Filter{FromEmail: "ada@uni.sk", ToEmail: "ada@uni.sk"})
	assert.Equal(t, []string{"m2", "m1"}, ids(msgs))

	msgs, _ = repo.QueryMessages(ctx, message.Filter{ToRole: "admin", Unread: true})
	assert.Equal(t, []string{"m1"}, ids(msgs))

	require.NoError(t, repo.MarkRead(ctx, "m1"))
	msgs, _ = repo.QueryMessages(ctx, message.Filter{ToRole: "admin", Unread: true})
	assert.Empty(t, msgs)
	assert.Equal(t, core.ErrNotFound, repo.MarkRead(ctx, "nope"))
}
