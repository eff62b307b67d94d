package legacy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/document"
	"github.com/erasmushub/erasmushub/core/message"
	"github.com/erasmushub/erasmushub/storage/legacy"
	testutil "github.com/erasmushub/erasmushub/tests"
)

const usersJSON = `{
	"ada@uni.sk":    {"password": "hunter22", "role": "student", "name": "Ada", "faculty": "FIIT"},
	"Office@uni.sk": {"password": "$2a$10$CwTycUXWue0Thq9StjUM0uJ8.RN4Gy0tHUQqHtZzq6Uq1GSbYX7.e", "role": "admin", "name": "Office"},
	"dean@uni.sk":   {"password": "x", "role": "dean"}
}`

const applicationsJSON = `[
	{
		"id": "a1",
		"student_email": "ada@uni.sk",
		"student_name": "Ada",
		"university": "TU Wien",
		"type": "Štúdium",
		"status": "Schválená",
		"progress": 29,
		"submitted": "02.03.2024",
		"approved_at": "05.03.2024 10:00",
		"approved_by": "office@uni.sk",
		"rejected_at": null,
		"created_at": "02.03.2024 09:15",
		"documents": [
			{"key": "cv", "filename": "20240302_091500_cv.pdf", "status": "V preverovaní"},
			{"key": "plan", "label": "Study plan", "filename": "20240302_091500_plan.pdf"}
		],
		"comments": [
			{"author_email": "office@uni.sk", "author": "Office", "text": "Looks good", "created_at": "04.03.2024 08:00"}
		]
	},
	{"student_name": "no email"},
	{"id": "a3", "student_email": "bob@uni.sk", "status": "Lost"}
]`

const messagesJSON = `[
	{"id": "m1", "from_email": "ada@uni.sk", "from_name": "Ada", "text": "Hello", "read": false, "created_at": "2024-03-03T10:00:00Z"},
	{"id": "m2", "from_email": "office@uni.sk", "from_role": "admin", "to_email": "ada@uni.sk", "text": "Hi Ada", "read": true}
]`

func writeFiles(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func newImporter(env *testutil.Env) *legacy.Importer {
	return legacy.NewImporter(legacy.Deps{
		Tx:            env.Tx,
		Users:         env.UserRepo,
		Applications:  env.ApplicationRepo,
		Documents:     env.DocumentRepo,
		Comments:      env.CommentRepo,
		Messages:      env.MessageRepo,
		Announcements: env.AnnouncementRepo,
		Logger:        env.Logger,
	})
}

func TestImporter_Import(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	imp := newImporter(env)
	dir := writeFiles(t, map[string]string{
		legacy.UsersFile:        usersJSON,
		legacy.ApplicationsFile: applicationsJSON,
		legacy.MessagesFile:     messagesJSON,
	})

	sum, err := imp.Import(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, legacy.Counts{Imported: 2, Failed: 1}, sum.Users)
	assert.Equal(t, legacy.Counts{Imported: 1, Failed: 2}, sum.Applications)
	assert.Equal(t, legacy.Counts{Imported: 2}, sum.Messages)
	assert.Equal(t, legacy.Counts{}, sum.Announcements, "missing file")

	t.Run("users", func(t *testing.T) {
		ada, err := env.UserRepo.GetUserByEmail(ctx, "ada@uni.sk")
		require.NoError(t, err)
		assert.Equal(t, core.RoleStudent, ada.Role)
		assert.Equal(t, "FIIT", ada.Faculty)
		assert.NotEqual(t, "hunter22", ada.Password, "plain text passwords get hashed")
		assert.True(t, ada.CheckPassword("hunter22"))

		office, err := env.UserRepo.GetUserByEmail(ctx, "office@uni.sk")
		require.NoError(t, err)
		assert.Equal(t, core.RoleAdmin, office.Role)
		assert.Equal(t, "$2a$10$CwTycUXWue0Thq9StjUM0uJ8.RN4Gy0tHUQqHtZzq6Uq1GSbYX7.e", office.Password, "hashes are kept")
	})

	t.Run("applications", func(t *testing.T) {
		app, err := env.ApplicationRepo.GetApplication(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, application.StatusApproved, app.Status)
		assert.Equal(t, "Study", app.MobilityType)
		assert.Equal(t, 29, app.Progress)
		assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), app.SubmittedDate)
		assert.Equal(t, time.Date(2024, 3, 2, 9, 15, 0, 0, time.UTC), app.CreatedAt)
		require.NotNil(t, app.Decision)
		assert.Equal(t, "office@uni.sk", app.Decision.DecidedBy)
		assert.Equal(t, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), app.Decision.DecidedAt)

		docs, err := env.DocumentRepo.ListDocuments(ctx, "a1")
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, document.StatusUnderReview, docs[0].Status)
		assert.Equal(t, "Curriculum vitae (in English)", docs[0].Label)
		assert.Equal(t, document.StatusSubmitted, docs[1].Status)
		assert.Equal(t, "Study plan", docs[1].Label)

		comments, err := env.CommentRepo.ListComments(ctx, "a1")
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, "Office", comments[0].AuthorName)

		_, err = env.ApplicationRepo.GetApplication(ctx, "a3")
		assert.Equal(t, core.ErrNotFound, err)
	})

	t.Run("messages", func(t *testing.T) {
		msgs, err := env.MessageRepo.QueryMessages(ctx, message.Filter{ToEmail: "ada@uni.sk"})
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, core.RoleStudent, msgs[0].ToRole)
		assert.True(t, msgs[0].IsRead)

		m1, err := env.MessageRepo.GetMessage(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, core.RoleStudent, m1.FromRole)
		assert.Equal(t, core.RoleAdmin, m1.ToRole)
	})

	t.Run("second run skips existing records", func(t *testing.T) {
		sum, err := imp.Import(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, legacy.Counts{Skipped: 2, Failed: 1}, sum.Users)
		assert.Equal(t, legacy.Counts{Skipped: 1, Failed: 2}, sum.Applications)
		assert.Equal(t, legacy.Counts{Skipped: 2}, sum.Messages)
	})
}

func TestImporter_Import_badDir(t *testing.T) {
	imp := newImporter(testutil.NewEnv(t))

	_, err := imp.Import(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), legacy.UsersFile)
	require.NoError(t, os.WriteFile(file, []byte(usersJSON), 0o600))
	_, err = imp.Import(context.Background(), file)
	assert.Error(t, err)
}

func TestImporter_Import_malformedFile(t *testing.T) {
	env := testutil.NewEnv(t)
	dir := writeFiles(t, map[string]string{
		legacy.UsersFile:         `{"ada@uni.sk": `,
		legacy.AnnouncementsFile: `[{"title": "Deadline", "content": "March 15", "priority": "high"}, {"title": ""}]`,
	})

	sum, err := newImporter(env).Import(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, legacy.Counts{}, sum.Users)
	assert.Equal(t, legacy.Counts{Imported: 1, Failed: 1}, sum.Announcements)
}
