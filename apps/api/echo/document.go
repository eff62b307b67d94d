package echoapi

import (
	"io"
	"mime"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/document"
)

type documentApi struct {
	appSvc   application.Service
	svc      document.Service
	validate *validator.Validate
}

func registerDocumentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	appSvc application.Service,
	svc document.Service,
	validate *validator.Validate,
) {
	api := documentApi{appSvc: appSvc, svc: svc, validate: validate}

	dg := g.Group("/documents", jwt)
	dg.GET("/:id/download", api.download)
	dg.PUT("/:id/status", api.setStatus, adminMiddleware())
	dg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *documentApi) download(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}

	doc, rc, err := api.appSvc.OpenDocument(ctx.Request().Context(), requester, id)
	if err != nil {
		return errors.Wrap(err, "opening document")
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return errors.Wrap(err, "reading document")
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename})
	ctx.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	return ctx.Blob(http.StatusOK, mimetype.Detect(content).String(), content)
}

func (api *documentApi) setStatus(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	var data document.UpdateStatus
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	doc, err := api.svc.SetStatus(ctx.Request().Context(), requester, id, data.Status)
	if err != nil {
		return errors.Wrap(err, "setting document status")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) destroy(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	id, err := int64Param(ctx, "id")
	if err != nil {
		return err
	}
	app, err := api.appSvc.RemoveDocument(ctx.Request().Context(), requester, id)
	if err != nil {
		return errors.Wrap(err, "removing document")
	}
	return ctx.JSON(http.StatusOK, app)
}
