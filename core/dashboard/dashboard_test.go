package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/announcement"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/dashboard"
	"github.com/erasmushub/erasmushub/core/document"
	"github.com/erasmushub/erasmushub/core/message"
	testutil "github.com/erasmushub/erasmushub/tests"
)

var (
	ctx   = context.Background()
	admin = core.Identity{Email: "office@uni.sk", Name: "Erasmus Office", Role: core.RoleAdmin}
	ada   = core.Identity{Email: "ada@uni.sk", Name: "Ada Lovelace", Role: core.RoleStudent}
	bob   = core.Identity{Email: "bob@uni.sk", Name: "Bob Builder", Role: core.RoleStudent}
)

func TestComputeStatistics(t *testing.T) {
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	apps := []application.Application{
		{SubmittedDate: march, MobilityType: "Study", Status: application.StatusApproved,
			Documents: []document.Document{{Key: "cv"}, {Key: "cv"}, {Key: "plan"}}},
		{SubmittedDate: march, MobilityType: "Traineeship", Status: application.StatusRejected,
			Documents: []document.Document{{Key: "cv"}}},
		{CreatedAt: april, MobilityType: "Study", Status: application.StatusSubmitted},
	}

	stats := dashboard.ComputeStatistics(apps)

	assert.Equal(t, []dashboard.MonthlyStat{
		{Month: "2024-03", Total: 2, Approved: 1, Rejected: 1},
		{Month: "2024-04", Total: 1},
	}, stats.Monthly)
	assert.Equal(t, map[string]int{"Study": 2, "Traineeship": 1}, stats.MobilityTypes)
	require.Len(t, stats.Documents, application.TotalRequirements())
	assert.Equal(t, dashboard.DocumentStat{Key: "cv", Label: "Curriculum vitae (in English)", Count: 2}, stats.Documents[0])
	assert.Equal(t, 1, stats.Documents[3].Count) // plan
	assert.Equal(t, 0, stats.Documents[1].Count)
}

func TestService(t *testing.T) {
	env := testutil.NewEnv(t)
	appSvc := env.ApplicationService()
	annSvc := announcement.NewService(env.AnnouncementRepo)
	msgSvc := message.NewService(env.MessageRepo)
	svc := dashboard.NewService(appSvc, annSvc, msgSvc, env.UserRepo)

	testutil.CreateUser(t, env.UserRepo, ada.Email, ada.Name, core.RoleStudent, "")
	testutil.CreateUser(t, env.UserRepo, bob.Email, bob.Name, core.RoleStudent, "")
	testutil.CreateUser(t, env.UserRepo, admin.Email, admin.Name, core.RoleAdmin, "")

	testutil.FreezeTime(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	first, err := appSvc.Create(ctx, ada, application.NewApplication{University: "TU Wien",
		Documents: []document.Upload{testutil.PDF("cv", "cv.pdf")}})
	require.NoError(t, err)
	testutil.FreezeTime(t, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))
	second, err := appSvc.Create(ctx, ada, application.NewApplication{University: "KU Leuven",
		Documents: []document.Upload{testutil.PDF("cv", "cv.pdf"), testutil.PDF("plan", "plan.pdf")}})
	require.NoError(t, err)
	_, err = appSvc.Create(ctx, bob, application.NewApplication{University: "Uni Bologna"})
	require.NoError(t, err)
	_, err = appSvc.Approve(ctx, admin, first.ID)
	require.NoError(t, err)

	_, err = annSvc.Create(ctx, admin, announcement.Input{Title: "Welcome", Content: "Hi", Priority: announcement.PriorityNormal})
	require.NoError(t, err)
	_, err = msgSvc.Send(ctx, admin, message.NewMessage{ToEmail: ada.Email, Text: "Your application is approved"})
	require.NoError(t, err)
	_, err = msgSvc.Send(ctx, bob, message.NewMessage{Text: "Question"})
	require.NoError(t, err)

	t.Run("Student", func(t *testing.T) {
		_, err := svc.Student(ctx, admin)
		assert.Equal(t, core.ErrForbidden, err)

		d, err := svc.Student(ctx, ada)
		require.NoError(t, err)
		require.Len(t, d.Applications, 2)
		assert.Equal(t, second.ID, d.Applications[0].ID)
		assert.Equal(t, 3, d.TotalDocuments)
		assert.Equal(t, 14, d.RequiredDocuments)
		assert.Equal(t, 1, d.Pending)
		assert.Equal(t, 1, d.Approved)
		assert.Len(t, d.LatestDocuments, 2)
		assert.Len(t, d.Requirements, 7)
		assert.Len(t, d.Announcements, 1)
		assert.Equal(t, 1, d.UnreadMessages)
	})

	t.Run("Student without applications", func(t *testing.T) {
		d, err := svc.Student(ctx, core.Identity{Email: "new@uni.sk", Role: core.RoleStudent})
		require.NoError(t, err)
		assert.Empty(t, d.Applications)
		assert.Equal(t, 7, d.RequiredDocuments)
		assert.Empty(t, d.LatestDocuments)
	})

	t.Run("Admin", func(t *testing.T) {
		_, err := svc.Admin(ctx, ada, nil)
		assert.Equal(t, core.ErrForbidden, err)

		d, err := svc.Admin(ctx, admin, &application.QueryFilter{Search: "bologna"})
		require.NoError(t, err)
		require.Len(t, d.Applications, 1)
		assert.Equal(t, "Uni Bologna", d.Applications[0].University)
		assert.Equal(t, dashboard.AdminStats{
			StudentsTotal:        2,
			ApplicationsPending:  2,
			ApplicationsApproved: 1,
			DocumentsTotal:       3,
			UnreadMessages:       1,
			AnnouncementsTotal:   1,
		}, d.Stats)
		assert.Len(t, d.LatestApplications, 3)
		assert.Len(t, d.LatestAnnouncements, 1)
	})

	t.Run("Statistics", func(t *testing.T) {
		_, err := svc.Statistics(ctx, ada)
		assert.Equal(t, core.ErrForbidden, err)

		stats, err := svc.Statistics(ctx, admin)
		require.NoError(t, err)
		require.Len(t, stats.Monthly, 1)
		assert.Equal(t, 3, stats.Monthly[0].Total)
		assert.Equal(t, 1, stats.Monthly[0].Approved)
	})
}
