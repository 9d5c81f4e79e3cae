package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/nightpass/admission/internal/repository"
    "github.com/nightpass/admission/internal/service"
)

// ScanHandler serves the door devices: validate (read-only) and redeem.
// Domain denials come back as HTTP 200 with is_valid=false so scanner
// firmware can always parse one response shape; only transport, auth and
// server faults use error status codes.
type ScanHandler struct {
    Validator *service.Validator
}

func NewScanHandler(v *service.Validator) *ScanHandler { return &ScanHandler{Validator: v} }

type scanReq struct {
    Code      string  `json:"code"`
    EventID   *uint64 `json:"event_id"`
    PartnerID *uint64 `json:"partner_id"`
    Quantity  uint32  `json:"quantity"` // redeem only, 0 means 1
}

// Validate checks a code without consuming anything.
func (h *ScanHandler) Validate(c echo.Context) error {
    var req scanReq
    if err := c.Bind(&req); err != nil || req.Code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Validator.Validate(ctx, req.Code, service.Scope{EventID: req.EventID, PartnerID: req.PartnerID})
    if err != nil {
        return denialResp(c, err)
    }
    return c.JSON(http.StatusOK, scanResp(res, "valid"))
}

// Redeem consumes admissions from a code.  Persistent lock contention on
// the credential row surfaces as 503 so the device retries the scan.
func (h *ScanHandler) Redeem(c echo.Context) error {
    var req scanReq
    if err := c.Bind(&req); err != nil || req.Code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
    }
    staffID := currentUserID(c)
    if staffID == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    scope := service.Scope{EventID: req.EventID, PartnerID: req.PartnerID}
    res, err := h.Validator.Redeem(ctx, req.Code, scope, req.Quantity, staffID)
    if err != nil {
        if err == repository.ErrTxContention {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, retry the scan"})
        }
        return denialResp(c, err)
    }
    return c.JSON(http.StatusOK, scanResp(res, "admitted"))
}

// scanResp renders the response a scanning device shows to staff.
func scanResp(res *service.ScanResult, message string) echo.Map {
    det := res.Credential
    return echo.Map{
        "is_valid":  true,
        "message":   message,
        "status":    det.Status,
        "remainder": res.Remainder,
        "details":   detailResp(det),
    }
}

// denialResp maps domain denials onto the single scanner response shape.
// Unknown errors still surface as 500.
func denialResp(c echo.Context, err error) error {
    var message string
    switch err {
    case repository.ErrCredentialNotFound:
        message = "code not recognized"
    case repository.ErrScopeMismatch:
        message = "code belongs to a different event or venue"
    case repository.ErrValidityWindow:
        message = "not valid yet"
    case repository.ErrExpired:
        message = "expired"
    case repository.ErrAlreadyRedeemed:
        message = "already fully redeemed"
    case repository.ErrInsufficientRemainder:
        message = "not enough admissions remaining"
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scan failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "is_valid": false,
        "message":  message,
    })
}
