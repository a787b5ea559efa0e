package routes

import (
	"net/http"

	"github.com/drydock-platform/drydock/internal/notify"
	"github.com/labstack/echo/v4"
)

func RegisterMisc(e *echo.Echo, hub *notify.Hub, metrics http.Handler) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
	if hub != nil {
		e.GET("/events", func(c echo.Context) error {
			return hub.ServeWS(c.Response(), c.Request())
		})
	}
}
