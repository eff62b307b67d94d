package echoapi

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/comment"
	"github.com/erasmushub/erasmushub/core/document"
)

const (
	docFieldPrefix   = "doc_"
	labelFieldPrefix = "label_"
)

type applicationApi struct {
	svc application.Service
}

func registerApplicationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc application.Service) {
	api := applicationApi{svc: svc}

	g.GET("/requirements", api.requirements, jwt)

	ag := g.Group("/applications", jwt)
	ag.GET("", api.query)
	ag.POST("", api.create, studentMiddleware())
	ag.GET("/:id", api.retrieve)
	ag.DELETE("/:id", api.destroy)
	ag.POST("/:id/documents", api.uploadDocuments, studentMiddleware())
	ag.POST("/:id/approve", api.approve, adminMiddleware())
	ag.POST("/:id/reject", api.reject, adminMiddleware())
	ag.GET("/:id/comments", api.listComments)
	ag.POST("/:id/comments", api.addComment, adminMiddleware())
}

// readUploads collects the `doc_<key>` files of a multipart form, in checklist order.
// Keys outside the checklist are ignored.
func readUploads(ctx echo.Context) ([]document.Upload, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		if err == http.ErrNotMultipart {
			return nil, core.NewFieldError("documents", "a multipart form is required")
		}
		return nil, errors.Wrap(err, "parsing multipart form")
	}

	var uploads []document.Upload
	for _, req := range application.Requirements() {
		files := form.File[docFieldPrefix+req.Key]
		if len(files) == 0 {
			continue
		}
		content, err := readFormFile(files[0])
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", docFieldPrefix+req.Key)
		}
		var label string
		if vals := form.Value[labelFieldPrefix+req.Key]; len(vals) > 0 {
			label = vals[0]
		}
		uploads = append(uploads, document.Upload{
			Key:      req.Key,
			Label:    label,
			Filename: files[0].Filename,
			Content:  content,
		})
	}
	return uploads, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Handlers

func (api *applicationApi) requirements(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, application.Requirements())
}

func (api *applicationApi) query(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	filter := new(application.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []application.Application{})
	}

	apps, err := api.svc.Query(ctx.Request().Context(), requester, filter)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []application.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) create(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	uploads, err := readUploads(ctx)
	if err != nil {
		return err
	}
	na := application.NewApplication{
		University:   ctx.FormValue("university"),
		MobilityType: ctx.FormValue("mobility_type"),
		Documents:    uploads,
	}

	app, err := api.svc.Create(ctx.Request().Context(), requester, na)
	if err != nil {
		return errors.Wrap(err, "creating application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	app, err := api.svc.Get(ctx.Request().Context(), requester, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) destroy(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), requester, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting application")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *applicationApi) uploadDocuments(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	uploads, err := readUploads(ctx)
	if err != nil {
		return err
	}
	if len(uploads) == 0 {
		return core.NewFieldError("documents", "no document was uploaded")
	}

	app, err := api.svc.ReplaceOrAddDocuments(ctx.Request().Context(), requester, ctx.Param("id"), uploads)
	if err != nil {
		return errors.Wrap(err, "uploading documents")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) approve(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	app, err := api.svc.Approve(ctx.Request().Context(), requester, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) reject(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	var data application.RejectRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectRequest")
	}

	app, err := api.svc.Reject(ctx.Request().Context(), requester, ctx.Param("id"), data.Reason)
	if err != nil {
		return errors.Wrap(err, "rejecting application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) listComments(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	comments, err := api.svc.ListComments(ctx.Request().Context(), requester, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing comments")
	}
	if comments == nil {
		comments = []comment.Comment{}
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *applicationApi) addComment(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	var data comment.NewComment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}

	c, err := api.svc.AddComment(ctx.Request().Context(), requester, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	return ctx.JSON(http.StatusCreated, c)
}
