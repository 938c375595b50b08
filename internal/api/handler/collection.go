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

type groupCollection struct {
	container *do.Injector
}

func (gr *groupCollection) RequestCollection(c echo.Context) error {
	serviceScheduler, err := do.Invoke[*services.ServiceScheduler](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(errors.New("invalid user id"), errorx.Invalid))
	}

	if err := serviceScheduler.RequestCollection(ctx, userID); err != nil {
		if errors.Is(err, services.ErrUserNotCollectable) {
			return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
		}
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, map[string]any{"queued": true}, nil)
}
