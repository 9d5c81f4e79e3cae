package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/nightpass/admission/internal/model"
)

// RequireRole aborts with 403 unless the authenticated user carries one
// of the given roles.  It expects JWTAuth to have stored the "role"
// claim in the context; anything outside the known role set is rejected.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            v, _ := c.Get("role").(string)
            role, ok := model.ParseRole(v)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
