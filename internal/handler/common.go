// Package handler wires HTTP requests to the service and repository
// layers.  Handlers bind and validate input, translate domain errors to
// status codes and render echo.Map / DTO responses.
package handler

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID extracts the authenticated user's ID from the context.
// The JWT parser decodes numeric claims as float64; string subjects are
// tolerated for tokens minted by other tooling.
func currentUserID(c echo.Context) uint64 {
    switch v := c.Get("user_id").(type) {
    case float64:
        return uint64(v)
    case uint64:
        return v
    case int64:
        return uint64(v)
    case string:
        if n, err := strconv.ParseUint(v, 10, 64); err == nil {
            return n
        }
    }
    return 0
}

// queryID parses an optional numeric query parameter, returning nil when
// absent or malformed.
func queryID(c echo.Context, name string) *uint64 {
    raw := c.QueryParam(name)
    if raw == "" {
        return nil
    }
    n, err := strconv.ParseUint(raw, 10, 64)
    if err != nil {
        return nil
    }
    return &n
}
