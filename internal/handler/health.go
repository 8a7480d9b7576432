package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health verifies that the service is up. Used by load balancers and
// monitoring.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
