package handler

import (
	"net/http"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
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
		return c.String(http.StatusOK, "🤖")
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		col := groupCollection{cfg.Container}
		routesAPIv1.POST("/collect/:id", col.RequestCollection)

		st := groupStatistics{cfg.Container}
		routesAPIv1.GET("/stats/platform", st.GetPlatformStatistics)
		routesAPIv1.GET("/stats/users/:id", st.GetUserStatistics)

		d := groupDLQ{cfg.Container}
		routesAPIv1.GET("/dlq/:topic", d.ListDeadLetters)
		routesAPIv1.POST("/dlq/:topic/replay", d.ReplayDeadLetters)
	}

	return r, nil
}
