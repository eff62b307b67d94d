package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/dashboard"
)

type dashboardApi struct {
	svc dashboard.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc dashboard.Service) {
	api := dashboardApi{svc: svc}

	dg := g.Group("/dashboard", jwt)
	dg.GET("/student", api.student, studentMiddleware())
	dg.GET("/admin", api.admin, adminMiddleware())
	dg.GET("/statistics", api.statistics, adminMiddleware())
}

// Handlers

func (api *dashboardApi) student(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	d, err := api.svc.Student(ctx.Request().Context(), requester)
	if err != nil {
		return errors.Wrap(err, "building student dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *dashboardApi) admin(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	filter := new(application.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		filter = new(application.QueryFilter)
	}

	d, err := api.svc.Admin(ctx.Request().Context(), requester, filter)
	if err != nil {
		return errors.Wrap(err, "building admin dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *dashboardApi) statistics(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Statistics(ctx.Request().Context(), requester)
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}
