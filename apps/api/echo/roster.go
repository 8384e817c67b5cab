package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/appel/core/attendance"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/roster"
	"github.com/trezcool/appel/services/report"
)

type rosterApi struct {
	svc       roster.Service
	attendSvc attendance.Service
}

func registerRosterAPI(g *echo.Group, svc roster.Service, attendSvc attendance.Service) {
	api := rosterApi{svc: svc, attendSvc: attendSvc}
	staff := roleMiddleware(identity.RoleAdmin, identity.RoleTeacher)

	cg := g.Group("/classes")
	cg.GET("", api.queryClasses, staff)
	cg.POST("", api.createClass, adminMiddleware())
	cg.PUT("/:id", api.updateClass, adminMiddleware())
	cg.DELETE("/:id", api.destroyClass, adminMiddleware())
	cg.GET("/:id/students", api.queryStudents, staff)
	cg.GET("/:id/attendance", api.queryAttendance, staff)
	cg.GET("/:id/attendance/export", api.exportAttendance, staff)

	sg := g.Group("/students", staff)
	sg.POST("", api.createStudent)
	sg.PUT("/:id", api.updateStudent)
	sg.DELETE("/:id", api.destroyStudent)

	g.GET("/parents/:id/children", api.queryChildren, roleMiddleware(identity.RoleAdmin, identity.RoleParent))
}

// Classes

func (api *rosterApi) queryClasses(ctx echo.Context) error {
	classes, err := api.svc.Classes(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *rosterApi) createClass(ctx echo.Context) error {
	var data roster.ClassData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassData")
	}
	cls, err := api.svc.CreateClass(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *rosterApi) updateClass(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data roster.ClassData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassData")
	}
	cls, err := api.svc.UpdateClass(ctx.Request().Context(), getPrincipal(ctx), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *rosterApi) destroyClass(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteClass(ctx.Request().Context(), getPrincipal(ctx), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *rosterApi) queryStudents(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	students, err := api.svc.StudentsOfClass(ctx.Request().Context(), getPrincipal(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *rosterApi) queryAttendance(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	date, err := queryDate(ctx, "date")
	if err != nil {
		return err
	}
	recs, err := api.attendSvc.ByDateAndClass(ctx.Request().Context(), getPrincipal(ctx), date, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *rosterApi) exportAttendance(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	start, err := queryDate(ctx, "start")
	if err != nil {
		return err
	}
	end, err := queryDate(ctx, "end")
	if err != nil {
		return err
	}

	sheet, err := api.attendSvc.ClassSheet(ctx.Request().Context(), getPrincipal(ctx), id, start, end)
	if err != nil {
		return err
	}
	buf, err := reportsvc.ClassSheet(sheet)
	if err != nil {
		return errors.Wrap(err, "rendering attendance sheet")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+reportsvc.Filename(sheet)+`"`)
	return ctx.Blob(http.StatusOK, reportsvc.ContentType, buf.Bytes())
}

// Students

func (api *rosterApi) createStudent(ctx echo.Context) error {
	var data roster.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	std, err := api.svc.CreateStudent(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *rosterApi) updateStudent(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data roster.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	std, err := api.svc.UpdateStudent(ctx.Request().Context(), getPrincipal(ctx), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *rosterApi) destroyStudent(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteStudent(ctx.Request().Context(), getPrincipal(ctx), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Parents

func (api *rosterApi) queryChildren(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	children, err := api.svc.ChildrenOf(ctx.Request().Context(), getPrincipal(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, children)
}
