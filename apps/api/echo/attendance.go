package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/appel/core/attendance"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/services/metrics"
)

type attendanceApi struct {
	svc attendance.Service
}

func registerAttendanceAPI(g *echo.Group, svc attendance.Service) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/attendance")
	ag.GET("", api.query)
	ag.POST("", api.mark, roleMiddleware(identity.RoleTeacher))
	ag.PUT("/:id/justification", api.justify, roleMiddleware(identity.RoleTeacher, identity.RoleParent))
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.MarkAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAttendance")
	}

	rec, created, err := api.svc.Mark(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return err
	}
	metrics.ObserveMark(string(rec.Status), created)

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, rec)
}

func (api *attendanceApi) justify(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data attendance.Justification
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Justification")
	}

	rec, err := api.svc.Justify(ctx.Request().Context(), getPrincipal(ctx), id, data)
	if err != nil {
		return err
	}
	metrics.AttendanceJustifications.Inc()
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	ids, err := queryIDs(ctx, "student_ids")
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

	recs, err := api.svc.ByStudentsAndDateRange(ctx.Request().Context(), getPrincipal(ctx), ids, start, end)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recs)
}
