package handler

import (
	"errors"
	"strconv"

	"githarvest/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupStatistics struct {
	container *do.Injector
}

func (gr *groupStatistics) GetPlatformStatistics(c echo.Context) error {
	serviceAggregator, err := do.Invoke[*services.ServiceAggregator](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	stats, err := serviceAggregator.PlatformStatistics(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}
	if stats == nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(errors.New("not computed yet"), errorx.NotExist))
	}

	return httpx.RestAbort(c, stats, nil)
}

func (gr *groupStatistics) GetUserStatistics(c echo.Context) error {
	serviceAggregator, err := do.Invoke[*services.ServiceAggregator](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(errors.New("invalid user id"), errorx.Invalid))
	}

	stats, err := serviceAggregator.UserStatistics(ctx, userID)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}
	if stats == nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(errors.New("no statistics for user"), errorx.NotExist))
	}

	return httpx.RestAbort(c, stats, nil)
}
