package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// BodyLimit はリクエストボディの上限。上映枠や座席の一覧でもこれで足りる
const BodyLimit = "1M"

// SetupMiddleware は全ルート共通のミドルウェアを登録する
// 順序: リクエストID → ログ → リカバリー → CORS → ボディ上限
func SetupMiddleware(e *echo.Echo) {
	e.Use(RequestIDMiddleware())
	e.Use(RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			HeaderUserID, HeaderUserRole, HeaderIdempotencyKey,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	}))
	e.Use(middleware.BodyLimit(BodyLimit))
}
