package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/access"
)

// 利用者情報のヘッダー。認証はこのサービスの外で済んでいる前提
const (
	HeaderUserID         = "X-User-ID"
	HeaderUserRole       = "X-User-Role"
	HeaderIdempotencyKey = "Idempotency-Key"
)

const (
	contextKeyUserID = "userID"
	contextKeyRole   = "userRole"
)

// RequireCapability は利用者の特定とロールの権限確認を行う。
// X-User-ID がなければ 401、ロールが権限を持たなければ 403。X-User-Role 省略時は customer
// caps を渡さなければ利用者の特定だけを行う
func RequireCapability(caps ...access.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := c.Request().Header.Get(HeaderUserID)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
			}

			role := access.RoleCustomer
			if raw := c.Request().Header.Get(HeaderUserRole); raw != "" {
				parsed, err := access.ParseRole(raw)
				if err != nil {
					return echo.NewHTTPError(http.StatusForbidden, err.Error())
				}
				role = parsed
			}

			for _, cap := range caps {
				if !role.Can(cap) {
					return echo.NewHTTPError(http.StatusForbidden, "この操作を行う権限がありません")
				}
			}

			c.Set(contextKeyUserID, userID)
			c.Set(contextKeyRole, role)
			return next(c)
		}
	}
}

// UserID は RequireCapability が設定したユーザーIDを返す
func UserID(c echo.Context) string {
	id, _ := c.Get(contextKeyUserID).(string)
	return id
}

// RoleOf は RequireCapability が設定したロールを返す
func RoleOf(c echo.Context) access.Role {
	role, _ := c.Get(contextKeyRole).(access.Role)
	return role
}

// ActorID は他人の予約を操作できるロールなら空文字、そうでなければ本人のユーザーIDを返す
func ActorID(c echo.Context) string {
	if RoleOf(c).Can(access.CapBookingManage) {
		return ""
	}
	return UserID(c)
}
