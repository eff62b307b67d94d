package document_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/document"
	testutil "github.com/erasmushub/erasmushub/tests"
)

var (
	ctx = context.Background()

	ada   = core.Identity{Email: "ada@student.uni.sk", Name: "Ada Lovelace", Role: core.RoleStudent}
	admin = core.Identity{Email: "office@uni.sk", Name: "Erasmus Office", Role: core.RoleAdmin}
)

func setup(t *testing.T) (document.Service, application.Application) {
	env := testutil.NewEnv(t)
	app, err := env.ApplicationService().Create(ctx, ada, application.NewApplication{
		University: "TU Wien",
		Documents:  []document.Upload{testutil.PDF("cv", "cv.pdf"), testutil.PDF("grades", "grades.pdf")},
	})
	require.NoError(t, err)
	require.Len(t, app.Documents, 2)
	return document.NewService(env.DocumentRepo), app
}

func TestService_SetStatus(t *testing.T) {
	svc, app := setup(t)
	id := app.Documents[0].ID

	_, err := svc.SetStatus(ctx, ada, id, "Approved")
	assert.Equal(t, core.ErrForbidden, err)

	_, err = svc.SetStatus(ctx, admin, id, "Lost")
	assert.True(t, core.IsValidationError(err))

	doc, err := svc.SetStatus(ctx, admin, id, "UnderReview")
	require.NoError(t, err)
	assert.Equal(t, document.StatusUnderReview, doc.Status)
}

func TestService_Delete(t *testing.T) {
	svc, app := setup(t)
	id := app.Documents[0].ID

	tests := []struct {
		name      string
		requester core.Identity
		id        int64
		wantErr   error
	}{
		{name: "student", requester: ada, id: id, wantErr: core.ErrForbidden},
		{name: "not found", requester: admin, id: 999, wantErr: core.ErrNotFound},
		{name: "deleted", requester: admin, id: id},
		{name: "already deleted", requester: admin, id: id, wantErr: core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, svc.Delete(ctx, tt.requester, tt.id))
		})
	}

	docs, err := svc.ListForApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "grades", docs[0].Key)

	_, err = svc.Get(ctx, id)
	assert.Equal(t, core.ErrNotFound, err)
}
