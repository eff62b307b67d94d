package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core/message"
)

type messageApi struct {
	svc message.Service
}

func registerMessageAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc message.Service) {
	api := messageApi{svc: svc}

	mg := g.Group("/messages", jwt)
	mg.GET("", api.query)
	mg.POST("", api.send)
	mg.GET("/unread-count", api.unreadCount)
	mg.POST("/:id/read", api.markRead)
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// Handlers

func (api *messageApi) query(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	msgs, err := api.svc.Query(ctx.Request().Context(), requester)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) send(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	var data message.NewMessage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}

	m, err := api.svc.Send(ctx.Request().Context(), requester, data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *messageApi) unreadCount(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.UnreadCount(ctx.Request().Context(), requester)
	if err != nil {
		return errors.Wrap(err, "counting unread messages")
	}
	return ctx.JSON(http.StatusOK, UnreadCountResponse{Unread: n})
}

func (api *messageApi) markRead(ctx echo.Context) error {
	requester, err := getIdentity(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkRead(ctx.Request().Context(), requester, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking message read")
	}
	return ctx.NoContent(http.StatusNoContent)
}
