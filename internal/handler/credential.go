package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/nightpass/admission/internal/model"
    "github.com/nightpass/admission/internal/repository"
    "github.com/nightpass/admission/internal/service"
)

// CredentialHandler exposes issuance and credential lookup endpoints.
type CredentialHandler struct {
    Issuer *service.Issuer
    Creds  *repository.CredentialRepo
}

func NewCredentialHandler(issuer *service.Issuer, creds *repository.CredentialRepo) *CredentialHandler {
    return &CredentialHandler{Issuer: issuer, Creds: creds}
}

type issueReq struct {
    ProductID uint64  `json:"product_id"`
    Quantity  uint32  `json:"quantity"` // 0 means the product default
    OwnerID   *uint64 `json:"owner_id"` // staff issuing on a member's behalf
}

// Issue creates one credential for a product.  Members always issue to
// themselves; the owner_id override is only honored for staff roles.
func (h *CredentialHandler) Issue(c echo.Context) error {
    var req issueReq
    if err := c.Bind(&req); err != nil || req.ProductID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_id required"})
    }

    ownerID := currentUserID(c)
    if req.OwnerID != nil {
        role, _ := model.ParseRole(roleClaim(c))
        if role == model.RoleMember {
            return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot issue for another user"})
        }
        ownerID = *req.OwnerID
    }
    if ownerID == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    cred, err := h.Issuer.Issue(ctx, service.IssueRequest{
        OwnerID:   ownerID,
        ProductID: req.ProductID,
        Quantity:  req.Quantity,
    })
    switch err {
    case nil:
    case repository.ErrProductNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
    case repository.ErrProductInactive:
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "product not active"})
    case repository.ErrValidityWindow:
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "product not on sale"})
    case repository.ErrQuotaExceeded:
        return c.JSON(http.StatusConflict, echo.Map{"error": "per-user limit reached"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue failed"})
    }

    return c.JSON(http.StatusCreated, credentialResp(cred))
}

// Get returns one credential by its public UUID.  Members only see their
// own credentials; staff roles see any.
func (h *CredentialHandler) Get(c echo.Context) error {
    id, err := uuid.Parse(c.Param("id"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid credential id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    det, err := h.Creds.GetByPublicID(ctx, id)
    if err != nil {
        if err == repository.ErrCredentialNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "credential not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }

    role, _ := model.ParseRole(roleClaim(c))
    if role == model.RoleMember && det.OwnerID != currentUserID(c) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "credential not found"})
    }
    return c.JSON(http.StatusOK, detailResp(det))
}

// ListMine returns every credential the authenticated user holds.
func (h *CredentialHandler) ListMine(c echo.Context) error {
    uid := currentUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    details, err := h.Creds.ListByOwner(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    out := make([]echo.Map, 0, len(details))
    for i := range details {
        out = append(out, detailResp(&details[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"credentials": out})
}

func roleClaim(c echo.Context) string {
    s, _ := c.Get("role").(string)
    return s
}

// credentialResp renders a credential with its status derived at read
// time, so a past valid_until shows EXPIRED without a stored transition.
func credentialResp(cred *model.Credential) echo.Map {
    now := time.Now().UTC()
    return echo.Map{
        "id":             cred.PublicID.String(),
        "code":           cred.Code,
        "event_id":       cred.EventID,
        "partner_id":     cred.PartnerID,
        "owner_id":       cred.OwnerID,
        "product_id":     cred.ProductID,
        "quantity":       cred.Quantity,
        "redeemed_count": cred.RedeemedCount,
        "remainder":      cred.Remainder(),
        "status":         cred.EffectiveStatus(now),
        "valid_from":     cred.ValidFrom,
        "valid_until":    cred.ValidUntil,
        "created_at":     cred.CreatedAt,
    }
}

func detailResp(det *repository.CredentialDetail) echo.Map {
    m := credentialResp(&det.Credential)
    m["holder_name"] = det.HolderName
    m["product_name"] = det.ProductName
    m["tier"] = det.Tier
    m["is_vip"] = det.Tier == model.TierVIP || det.Tier == model.TierTable
    if det.SpecialInstructions != nil {
        m["special_instructions"] = *det.SpecialInstructions
    }
    return m
}
