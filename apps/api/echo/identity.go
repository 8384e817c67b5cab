package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/appel/core/access"
	"github.com/trezcool/appel/core/identity"
)

type identityApi struct {
	svc identity.Service
}

func registerIdentityAPI(g *echo.Group, svc identity.Service) {
	api := identityApi{svc: svc}

	g.GET("/parents", api.queryParents, roleMiddleware(identity.RoleAdmin, identity.RoleTeacher))

	ag := g.Group("/admin", adminMiddleware())
	ag.GET("/teachers", api.queryTeachers)
	ag.POST("/teachers", api.create(identity.RoleTeacher))
	ag.DELETE("/teachers/:id", api.destroy(identity.RoleTeacher))
	ag.POST("/parents", api.create(identity.RoleParent))
	ag.DELETE("/parents/:id", api.destroy(identity.RoleParent))
}

var collection = access.Target{Collection: true}

func (api *identityApi) queryParents(ctx echo.Context) error {
	if err := access.Authorize(getPrincipal(ctx), access.ListParents, collection); err != nil {
		return err
	}
	parents, err := api.svc.Parents(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, parents)
}

func (api *identityApi) queryTeachers(ctx echo.Context) error {
	if err := access.Authorize(getPrincipal(ctx), access.ReadIdentities, collection); err != nil {
		return err
	}
	teachers, err := api.svc.Teachers(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *identityApi) create(role identity.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := access.Authorize(getPrincipal(ctx), access.WriteIdentities, collection); err != nil {
			return err
		}
		var data identity.NewAccount
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewAccount")
		}

		acc, err := api.svc.Create(ctx.Request().Context(), role, data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusCreated, acc)
	}
}

func (api *identityApi) destroy(role identity.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := access.Authorize(getPrincipal(ctx), access.WriteIdentities, collection); err != nil {
			return err
		}
		id, err := paramID(ctx, "id")
		if err != nil {
			return err
		}
		if err = api.svc.Delete(ctx.Request().Context(), identity.Principal{ID: id, Role: role}); err != nil {
			return err
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}
