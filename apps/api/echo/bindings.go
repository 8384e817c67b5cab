package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/appel/core"
)

const (
	errInvalidDate = "invalid date, expected YYYY-MM-DD"
	errInvalidIDs  = "expected a comma separated list of ids"
)

// paramID reads a positive id from the path. Anything else cannot name a resource.
func paramID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// queryDate reads an optional date from the query string; a missing date is the zero core.Date.
func queryDate(ctx echo.Context, name string) (core.Date, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(val)
	if err != nil {
		return core.Date{}, core.NewFieldError(name, errInvalidDate)
	}
	return d, nil
}

// queryIDs reads ids given as "1,2,3", as repeated parameters, or both.
func queryIDs(ctx echo.Context, name string) ([]int64, error) {
	ids := make([]int64, 0)
	for _, val := range ctx.QueryParams()[name] {
		for _, field := range strings.Split(val, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			id, err := strconv.ParseInt(field, 10, 64)
			if err != nil || id <= 0 {
				return nil, core.NewFieldError(name, errInvalidIDs)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
