package handler

import (
	"sippets/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupBattle struct {
	container *do.Injector
}

func (gr *groupBattle) Create(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload struct {
		PetID       int64  `json:"pet_id"`
		Bet         int64  `json:"bet"`
		TxSignature string `json:"tx_signature"`
	}
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceBattle, err := do.Invoke[*services.ServiceBattle](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	battle, err := serviceBattle.Create(ctx, user, payload.PetID, payload.Bet, payload.TxSignature)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, battle, nil)
}

func (gr *groupBattle) Accept(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload struct {
		PetID       int64  `json:"pet_id"`
		TxSignature string `json:"tx_signature"`
	}
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceBattle, err := do.Invoke[*services.ServiceBattle](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	battle, err := serviceBattle.Accept(ctx, user, c.Param("battle-id"), payload.PetID, payload.TxSignature)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, battle, nil)
}

func (gr *groupBattle) Cancel(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceBattle, err := do.Invoke[*services.ServiceBattle](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	err = serviceBattle.Cancel(ctx, user, c.Param("battle-id"))
	return httpx.RestAbort(c, nil, err)
}

func (gr *groupBattle) Show(c echo.Context) error {
	ctx := c.Request().Context()

	serviceBattle, err := do.Invoke[*services.ServiceBattle](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	battle, err := serviceBattle.GetBattle(ctx, c.Param("battle-id"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, battle, nil)
}

func (gr *groupBattle) ListOpen(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceBattle, err := do.Invoke[*services.ServiceBattle](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	battles, err := serviceBattle.ListOpen(ctx, user)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, battles, nil)
}

func (gr *groupBattle) History(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	limit, offset := pagination(c)

	serviceBattle, err := do.Invoke[*services.ServiceBattle](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	battles, err := serviceBattle.History(ctx, user, limit, offset)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, battles, nil)
}
