package handler

import (
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
)

// MetricsHandler exposes Prometheus metrics
func MetricsHandler(c echo.Context) error {
	prometheus.GetPrometheusHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
