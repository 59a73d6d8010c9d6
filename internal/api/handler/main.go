package handler

import (
	"net/http"

	"sippets/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🐾")
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		bot, err := do.Invoke[*services.Bot](cfg.Container)
		if err != nil {
			return nil, err
		}
		authentication, err := do.Invoke[*services.Authentication](cfg.Container)
		if err != nil {
			return nil, err
		}
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})

		routesAPIv1.Use(cors)

		// /user/me is the only route that accepts raw Telegram init data.
		// It exchanges it for the JWT every other route expects.
		routesAPIv1Me := routesAPIv1.Group("/user/me")
		routesAPIv1Me.Use(AuthnInitData(bot))
		{
			m := groupUser{cfg.Container}
			routesAPIv1Me.GET("", m.Me)
		}

		routesAPIv1.Use(AuthnToken(authentication)) // Authn will NOT terminate unauthenticated request.
		routesAPIv1.GET("", Hello)

		routesAPIv1User := routesAPIv1.Group("/user")
		{
			u := groupUser{cfg.Container}
			routesAPIv1User.POST("/connect/ton", u.ConnectTonWallet)
			routesAPIv1User.GET("/transfers", u.Transfers)
		}

		routesAPIv1Pet := routesAPIv1.Group("/pet")
		{
			p := groupPet{cfg.Container}
			routesAPIv1Pet.POST("/adopt", p.Adopt)
			routesAPIv1Pet.GET("/me", p.Me)
			routesAPIv1Pet.GET("/of/:user-id", p.Show)
			routesAPIv1Pet.POST("/care/:action", p.Care)
			routesAPIv1Pet.POST("/feed", p.Feed)
			routesAPIv1Pet.POST("/visit/:user-id", p.Visit)
			routesAPIv1Pet.POST("/react/:user-id", p.React)
			routesAPIv1Pet.GET("/events", p.Events)
		}

		routesAPIv1Battle := routesAPIv1.Group("/battle")
		{
			b := groupBattle{cfg.Container}
			routesAPIv1Battle.POST("", b.Create)
			routesAPIv1Battle.GET("/open", b.ListOpen)
			routesAPIv1Battle.GET("/history", b.History)
			routesAPIv1Battle.GET("/:battle-id", b.Show)
			routesAPIv1Battle.POST("/:battle-id/accept", b.Accept)
			routesAPIv1Battle.POST("/:battle-id/cancel", b.Cancel)
		}

		routesAPIv1Raid := routesAPIv1.Group("/raid")
		{
			rd := groupRaid{cfg.Container}
			routesAPIv1Raid.GET("/active", rd.Active)
			routesAPIv1Raid.POST("/join", rd.Join)
			routesAPIv1Raid.POST("/attack", rd.Attack)
			routesAPIv1Raid.POST("/:raid-id/claim", rd.Claim)
			routesAPIv1Raid.GET("/:raid-id/leaderboard", rd.Leaderboard)
		}

		t := groupTribe{cfg.Container}
		routesAPIv1.GET("/tribes/standings", t.Standings)

		l := groupLeaderboard{cfg.Container}
		routesAPIv1.GET("/leaderboard/power", l.GetPowerLeaderboard)
	}

	return r, nil
}

func Hello(c echo.Context) error {
	return httpx.RestAbort(c, "hello world", nil)
}
