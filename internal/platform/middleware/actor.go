package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
)

// UserIDHeader identifies the caller for the audit trail. It is informational
// only; the API performs no authentication.
const UserIDHeader = "X-User-ID"

// Actor records the optional X-User-ID header on the request context.
func Actor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := strings.TrimSpace(c.Request().Header.Get(UserIDHeader))
			if uid != "" {
				c.Set("user_id", uid)
				c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), uid)))
			}
			return next(c)
		}
	}
}

func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey, userID)
}

// ActorFromContext returns the caller id, or "" for anonymous requests.
func ActorFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(actorKey).(string)
	return uid
}
