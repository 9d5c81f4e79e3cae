// Package router maps HTTP routes onto handlers and middleware groups.
package router

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/nightpass/admission/internal/config"
    "github.com/nightpass/admission/internal/handler"
    "github.com/nightpass/admission/internal/middleware"
    "github.com/nightpass/admission/internal/model"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the auth endpoints.  Register, login and the
// refresh flows are open; logout and /v1/me require an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    g.POST("/refresh-access", a.RefreshAccess)
    // Logout accepts either a refresh token in the body or a bearer
    // token, so it only gets the JWT middleware when routed under /v1.
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
    auth.POST("/logout", a.Logout)
}

// RegisterCredentials wires issuance and credential lookup.  Any
// authenticated role may issue for itself; the handler enforces who may
// issue on behalf of others.
func RegisterCredentials(e *echo.Echo, h *handler.CredentialHandler, jwtSecret string) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.POST("/credentials", h.Issue)
    g.GET("/credentials/:id", h.Get)
    g.GET("/my-credentials", h.ListMine)
}

// RegisterScan wires the door endpoints.  Scanning is restricted to
// staff-side roles and rate limited per device and user so a looping
// scanner cannot hammer the credential rows.
func RegisterScan(e *echo.Echo, h *handler.ScanHandler, jwtSecret string, rdb *redis.Client) {
    g := e.Group("/v1/scan")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole(model.RoleAdmin, model.RoleOrganizer, model.RoleStaff, model.RolePartner))
    g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    g.POST("/validate", h.Validate)
    g.POST("/redeem", h.Redeem)
}

// RegisterReports wires the dashboards for organizers and admins, with
// a short-TTL response cache in front of the aggregate queries.
func RegisterReports(e *echo.Echo, h *handler.ReportHandler, jwtSecret string, rdb *redis.Client) {
    g := e.Group("/v1/reports")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole(model.RoleAdmin, model.RoleOrganizer))
    g.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
    g.GET("/admissions", h.Admissions)
    g.GET("/staff-performance", h.StaffPerformance)
    g.GET("/attendance-ranking", h.AttendanceRanking)
    g.GET("/full-attendance", h.FullAttendance)
}
