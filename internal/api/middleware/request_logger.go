package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/api"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/pkg/logger"
)

// RequestLogger はリクエストの構造化ログを出力するミドルウェア
// 4xx は Warn、5xx は Error で出す。座席競合(409)の多発を追えるよう冪等性キーも残す
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				// エラーレスポンスはまだ書かれていない
				status = api.StatusOf(err)
			}

			fields := requestFields(c, status, time.Since(start))
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			log := logger.Named("http")
			switch {
			case status >= 500:
				log.Error("server error", fields...)
			case status >= 400:
				log.Warn("client error", fields...)
			default:
				log.Info("request completed", fields...)
			}
			return err
		}
	}
}

func requestFields(c echo.Context, status int, latency time.Duration) []zap.Field {
	req := c.Request()
	res := c.Response()

	requestID := req.Header.Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = res.Header().Get(echo.HeaderXRequestID)
	}

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("route", c.Path()),
		zap.String("path", req.URL.Path),
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.Int64("size", res.Size),
		zap.String("remote_ip", c.RealIP()),
	}
	if uid := req.Header.Get(HeaderUserID); uid != "" {
		fields = append(fields, logger.UserID(uid), zap.String("role", req.Header.Get(HeaderUserRole)))
	}
	if key := req.Header.Get(HeaderIdempotencyKey); key != "" {
		fields = append(fields, zap.String("idempotency_key", key))
	}
	return fields
}

// RequestIDMiddleware はリクエストIDを付与する。クライアントが送ってきたIDはそのまま返す
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
				c.Request().Header.Set(echo.HeaderXRequestID, id)
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}
