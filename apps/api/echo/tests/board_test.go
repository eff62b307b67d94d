package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/erasmushub/erasmushub/apps/api/echo"
	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/announcement"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/dashboard"
	"github.com/erasmushub/erasmushub/core/document"
	"github.com/erasmushub/erasmushub/core/message"
	testutil "github.com/erasmushub/erasmushub/tests"
)

func Test_announcementApi(t *testing.T) {
	app := setup(t)
	student := app.createUser(t, "ada@uni.sk", "Ada", core.RoleStudent)
	admin := app.createUser(t, "office@uni.sk", "Erasmus Office", core.RoleAdmin)
	studentToken, adminToken := app.token(t, student), app.token(t, admin)

	svc := announcement.NewService(app.env.AnnouncementRepo)
	testutil.FreezeTime(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	older, err := svc.Create(context.Background(), admin.Identity(), announcement.Input{Title: "Deadline", Content: "March 15", Priority: announcement.PriorityHigh})
	require.NoError(t, err)
	testutil.FreezeTime(t, time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC))
	newer, err := svc.Create(context.Background(), admin.Identity(), announcement.Input{Title: "Info day", Content: "Room 101", Priority: announcement.PriorityNormal})
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/announcements", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "newest first", path: "/v1/announcements", token: studentToken, wantCode: http.StatusOK, wantData: marchallList(t, newer, older)},
		{name: "limit", path: "/v1/announcements?limit=1", token: studentToken, wantCode: http.StatusOK, wantData: marchallList(t, newer)},
		{name: "retrieve", path: "/v1/announcements/" + older.ID, token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, older)},
		{name: "unknown", path: "/v1/announcements/nope", token: studentToken, wantCode: http.StatusNotFound},
		{
			name: "admin required", method: http.MethodPost, path: "/v1/announcements", token: studentToken,
			body: marchallObj(t, announcement.Input{Title: "x", Content: "y"}), wantCode: http.StatusForbidden,
		},
		{
			name: "invalid", method: http.MethodPost, path: "/v1/announcements", token: adminToken,
			body:     marchallObj(t, announcement.Input{Content: "y"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "created", method: http.MethodPost, path: "/v1/announcements", token: adminToken,
			body: marchallObj(t, announcement.Input{Title: "Grants", Content: "Paid in May"}), wantCode: http.StatusCreated,
		},
		{
			name: "updated", method: http.MethodPut, path: "/v1/announcements/" + older.ID, token: adminToken,
			body: marchallObj(t, announcement.Input{Title: "Deadline moved", Content: "March 20", Priority: "high"}), wantCode: http.StatusOK,
		},
		{name: "deleted", method: http.MethodDelete, path: "/v1/announcements/" + newer.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "delete unknown", method: http.MethodDelete, path: "/v1/announcements/" + newer.ID, token: adminToken, wantCode: http.StatusNotFound},
	}
	app.run(t, tests)

	got, err := svc.Get(context.Background(), older.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deadline moved", got.Title)
	assert.NotNil(t, got.UpdatedAt)
}

func Test_messageApi(t *testing.T) {
	app := setup(t)
	student := app.createUser(t, "ada@uni.sk", "Ada", core.RoleStudent)
	other := app.createUser(t, "bob@uni.sk", "Bob", core.RoleStudent)
	admin := app.createUser(t, "office@uni.sk", "Erasmus Office", core.RoleAdmin)
	studentToken, otherToken, adminToken := app.token(t, student), app.token(t, other), app.token(t, admin)

	send := func(token string, nm message.NewMessage) message.Message {
		req, rec := newAuthRequest(http.MethodPost, "/v1/messages", token, marchallObj(t, nm))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var m message.Message
		unmarshal(t, rec, &m)
		return m
	}

	question := send(studentToken, message.NewMessage{Text: "When is the deadline?"})
	assert.Equal(t, core.RoleAdmin, question.ToRole)
	reply := send(adminToken, message.NewMessage{ToEmail: student.Email, Text: "March 15."})
	assert.Equal(t, core.RoleStudent, reply.ToRole)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/messages", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "blank", method: http.MethodPost, path: "/v1/messages", token: studentToken,
			body:     marchallObj(t, message.NewMessage{Text: "  "}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"text": "message cannot be empty"}),
		},
		{
			name: "admin must name a recipient", method: http.MethodPost, path: "/v1/messages", token: adminToken,
			body:     marchallObj(t, message.NewMessage{Text: "hello"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"to_email": "recipient is required"}),
		},
		{name: "other student mailbox", path: "/v1/messages", token: otherToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "student unread", path: "/v1/messages/unread-count", token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, UnreadCountResponse{Unread: 1})},
		{name: "admin unread", path: "/v1/messages/unread-count", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, UnreadCountResponse{Unread: 1})},
		{name: "foreign student cannot mark read", method: http.MethodPost, path: "/v1/messages/" + reply.ID + "/read", token: otherToken, wantCode: http.StatusForbidden},
		{name: "mark read", method: http.MethodPost, path: "/v1/messages/" + reply.ID + "/read", token: studentToken, wantCode: http.StatusNoContent},
		{name: "student unread after read", path: "/v1/messages/unread-count", token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, UnreadCountResponse{Unread: 0})},
	}
	app.run(t, tests)

	req, rec := newAuthRequest(http.MethodGet, "/v1/messages", studentToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []message.Message
	unmarshal(t, rec, &msgs)
	assert.Len(t, msgs, 2)
}

func Test_dashboardApi(t *testing.T) {
	app := setup(t)
	student := app.createUser(t, "ada@uni.sk", "Ada", core.RoleStudent)
	admin := app.createUser(t, "office@uni.sk", "Erasmus Office", core.RoleAdmin)
	studentToken, adminToken := app.token(t, student), app.token(t, admin)

	_, err := app.env.ApplicationService().Create(context.Background(), student.Identity(), application.NewApplication{
		University:   "TU Wien",
		MobilityType: "Traineeship",
		Documents:    []document.Upload{testutil.PDF("cv", "cv.pdf"), testutil.PDF("grades", "grades.pdf")},
	})
	require.NoError(t, err)

	tests := []httpTest{
		{name: "student dashboard requires a student", path: "/v1/dashboard/student", token: adminToken, wantCode: http.StatusForbidden},
		{name: "admin dashboard requires an admin", path: "/v1/dashboard/admin", token: studentToken, wantCode: http.StatusForbidden},
		{name: "statistics require an admin", path: "/v1/dashboard/statistics", token: studentToken, wantCode: http.StatusForbidden},
	}
	app.run(t, tests)

	t.Run("student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/student", studentToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var d dashboard.Student
		unmarshal(t, rec, &d)
		assert.Len(t, d.Applications, 1)
		assert.Equal(t, 2, d.TotalDocuments)
		assert.Equal(t, 7, d.RequiredDocuments)
		assert.Equal(t, 1, d.Pending)
		assert.Len(t, d.LatestDocuments, 2)
		assert.Len(t, d.Requirements, 7)
	})

	t.Run("admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/admin?status=Approved", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var d dashboard.Admin
		unmarshal(t, rec, &d)
		assert.Empty(t, d.Applications, "filtered")
		assert.Len(t, d.LatestApplications, 1)
		assert.Equal(t, dashboard.AdminStats{StudentsTotal: 1, ApplicationsPending: 1, DocumentsTotal: 2}, d.Stats)
	})

	t.Run("statistics", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/statistics", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var stats dashboard.Statistics
		unmarshal(t, rec, &stats)
		assert.Equal(t, map[string]int{"Traineeship": 1}, stats.MobilityTypes)
		require.Len(t, stats.Monthly, 1)
		assert.Equal(t, 1, stats.Monthly[0].Total)
	})
}

func Test_metrics(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/metrics")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
