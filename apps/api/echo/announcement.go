package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core/announcement"
)

type announcementApi struct {
	svc      announcement.Service
	validate *validator.Validate
}

func registerAnnouncementAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc announcement.Service, validate *validator.Validate) {
	api := announcementApi{svc: svc, validate: validate}

	ag := g.Group("/announcements", jwt)
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.POST("", api.create, adminMiddleware())
	ag.PUT("/:id", api.update, adminMiddleware())
	ag.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *announcementApi) query(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit")) // no limit by default
	anns, err := api.svc.Query(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if anns == nil {
		anns = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *announcementApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting announcement")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *announcementApi) create(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	var data announcement.Input
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to announcement.Input")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), requester, data)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *announcementApi) update(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	var data announcement.Input
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to announcement.Input")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Update(ctx.Request().Context(), requester, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating announcement")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *announcementApi) destroy(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), requester, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}
