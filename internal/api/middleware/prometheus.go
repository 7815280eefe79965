package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/api"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/pkg/metrics"
)

// metricsPath はスクレイプ用のパス。自分自身は計測しない
const metricsPath = "/metrics"

// PrometheusMiddleware はルートごとのリクエスト数とレイテンシを記録する
// path ラベルには /api/v1/sessions/:id のようなルートパターンを使い、IDごとに系列を増やさない
func PrometheusMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := routeLabel(c)
			if route == metricsPath {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			elapsed := time.Since(start).Seconds()

			status := c.Response().Status
			if err != nil {
				// エラーハンドラーはこの後に走るので、同じ対応表でステータスを決める
				status = api.StatusOf(err)
			}

			method := c.Request().Method
			m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed)
			return err
		}
	}
}

func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}
