package handler

import (
	"sippets/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupTribe struct {
	container *do.Injector
}

func (gr *groupTribe) Standings(c echo.Context) error {
	ctx := c.Request().Context()

	serviceTribeScore, err := do.Invoke[*services.ServiceTribeScore](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	week, err := serviceTribeScore.EnsureActiveWeek(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	standings, err := serviceTribeScore.Standings(ctx, week.ID)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"week":      week,
		"standings": standings,
	}, nil)
}
