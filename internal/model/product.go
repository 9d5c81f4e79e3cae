package model

import "time"

// ProductTier classifies what kind of admission a product grants.  The
// tier drives reporting splits and the VIP flag shown to scanning staff.
type ProductTier string

const (
    TierGeneral ProductTier = "GENERAL"
    TierVIP     ProductTier = "VIP"
    TierTable   ProductTier = "TABLE"
    TierCoupon  ProductTier = "COUPON"
)

// Product describes something a credential can be issued for: a ticket
// tier of an event, a table package, or a partner coupon definition.
// Issuance policy (active flag, sale window, per-user cap) lives here;
// the redemption ledger never consults the product.
//
// Fields:
//  ID                    – primary key.
//  EventID               – scope when the product belongs to an event.
//  PartnerID             – scope when the product belongs to a partner.
//  Name                  – display name shown on scan responses.
//  Tier                  – GENERAL, VIP, TABLE or COUPON.
//  PriceCents            – list price in cents.
//  QuantityPerCredential – default units granted per issued credential.
//  MaxPerUser            – per-owner issuance cap; 0 means unlimited.
//  Active                – whether the product may currently be issued.
//  SaleStartsAt/SaleEndsAt – optional sale window checked at issuance.
//  ValidFrom/ValidUntil  – validity window stamped onto credentials.
//  SpecialInstructions   – optional note surfaced to the scanning UI.
type Product struct {
    ID                    uint64      // products.id
    EventID               *uint64     // products.event_id (nullable)
    PartnerID             *uint64     // products.partner_id (nullable)
    Name                  string      // products.name
    Tier                  ProductTier // products.tier
    PriceCents            uint32      // products.price_cents
    QuantityPerCredential uint32      // products.quantity_per_credential
    MaxPerUser            uint32      // products.max_per_user
    Active                bool        // products.is_active
    SaleStartsAt          *time.Time  // products.sale_starts_at (nullable)
    SaleEndsAt            *time.Time  // products.sale_ends_at (nullable)
    ValidFrom             *time.Time  // products.valid_from (nullable)
    ValidUntil            *time.Time  // products.valid_until (nullable)
    SpecialInstructions   *string     // products.special_instructions (nullable)
    CreatedAt             time.Time   // products.created_at
    UpdatedAt             time.Time   // products.updated_at
}

// SaleOpenAt reports whether the product may be issued at the given
// instant.  Missing window bounds are treated as open-ended.
func (p *Product) SaleOpenAt(now time.Time) bool {
    if p.SaleStartsAt != nil && now.Before(*p.SaleStartsAt) {
        return false
    }
    if p.SaleEndsAt != nil && now.After(*p.SaleEndsAt) {
        return false
    }
    return true
}

// IsVIP reports whether credentials of this product should light up the
// VIP indicator on scanning devices.  Table packages count as VIP.
func (p *Product) IsVIP() bool {
    return p.Tier == TierVIP || p.Tier == TierTable
}
