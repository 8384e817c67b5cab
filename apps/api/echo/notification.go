package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/notification"
	"github.com/trezcool/appel/services/metrics"
)

type notificationApi struct {
	svc notification.Service
}

func registerNotificationAPI(g *echo.Group, svc notification.Service) {
	api := notificationApi{svc: svc}

	ng := g.Group("/notifications")
	ng.GET("", api.query)
	ng.POST("", api.create, roleMiddleware(identity.RoleTeacher))
	ng.PUT("/:id/read", api.markRead, roleMiddleware(identity.RoleTeacher, identity.RoleParent))
}

func (api *notificationApi) query(ctx echo.Context) error {
	list, err := api.svc.ListFor(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *notificationApi) create(ctx echo.Context) error {
	var data notification.NewNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}

	n, err := api.svc.Create(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return err
	}
	metrics.NotificationsCreated.Inc()
	return ctx.JSON(http.StatusCreated, n)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.MarkRead(ctx.Request().Context(), getPrincipal(ctx), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
