package model

import (
    "time"

    "github.com/google/uuid"
)

// CredentialStatus enumerates the stored lifecycle states of a credential.
// EXPIRED is a read-time derivation and is never written to the database;
// it exists so that validation code can report it uniformly alongside the
// stored states.
type CredentialStatus string

const (
    StatusPending       CredentialStatus = "PENDING"
    StatusPartiallyUsed CredentialStatus = "PARTIALLY_USED"
    StatusRedeemed      CredentialStatus = "REDEEMED"
    StatusExpired       CredentialStatus = "EXPIRED" // derived, never persisted
)

// StatusFor returns the stored status implied by a redeemed count.  The
// mapping is total: zero means PENDING, a full count means REDEEMED and
// anything in between means PARTIALLY_USED.
func StatusFor(redeemed, quantity uint32) CredentialStatus {
    switch {
    case redeemed == 0:
        return StatusPending
    case redeemed >= quantity:
        return StatusRedeemed
    default:
        return StatusPartiallyUsed
    }
}

// Credential is the unit this service governs: a ticket admitting
// Quantity guests, a partner coupon worth a single discount, or an
// organizer invitation grant.  The scope of a credential is either an
// event or a partner; exactly one of EventID/PartnerID is set and both
// the scope and the scan code are immutable after creation.
//
// Fields:
//  ID             – internal primary key.
//  PublicID       – opaque identifier exposed to clients.
//  EventID        – scope when the credential belongs to an event.
//  PartnerID      – scope when the credential belongs to a partner.
//  OwnerID        – holder entitled to redeem.
//  ProductID      – product the credential was issued from.
//  Code           – scannable uppercase code, unique within the scope.
//  Quantity       – total units grantable; at least 1.
//  RedeemedCount  – units consumed so far; never exceeds Quantity.
//  Status         – stored state (PENDING, PARTIALLY_USED, REDEEMED).
//  ValidFrom      – optional start of the validity window.
//  ValidUntil     – optional end of the validity window.
//  LastRedeemedBy – staff user who performed the most recent scan.
//  LastRedeemedAt – timestamp of the most recent scan.
type Credential struct {
    ID             uint64           // credentials.id
    PublicID       uuid.UUID        // credentials.public_id
    EventID        *uint64          // credentials.event_id (nullable)
    PartnerID      *uint64          // credentials.partner_id (nullable)
    OwnerID        uint64           // credentials.owner_id
    ProductID      uint64           // credentials.product_id
    Code           string           // credentials.code
    Quantity       uint32           // credentials.quantity
    RedeemedCount  uint32           // credentials.redeemed_count
    Status         CredentialStatus // credentials.status
    ValidFrom      *time.Time       // credentials.valid_from (nullable)
    ValidUntil     *time.Time       // credentials.valid_until (nullable)
    LastRedeemedBy *uint64          // credentials.last_redeemed_by (nullable)
    LastRedeemedAt *time.Time       // credentials.last_redeemed_at (nullable)
    CreatedAt      time.Time        // credentials.created_at
    UpdatedAt      time.Time        // credentials.updated_at
}

// Remainder returns the units still redeemable.
func (c *Credential) Remainder() uint32 {
    if c.RedeemedCount >= c.Quantity {
        return 0
    }
    return c.Quantity - c.RedeemedCount
}

// ExpiredAt reports whether the credential should be treated as expired
// at the given instant: the validity window has closed while units were
// still outstanding.  A fully redeemed credential is REDEEMED, not
// EXPIRED, regardless of the window.
func (c *Credential) ExpiredAt(now time.Time) bool {
    return c.ValidUntil != nil && now.After(*c.ValidUntil) && c.Remainder() > 0
}

// EffectiveStatus returns the stored status overlaid with the read-time
// EXPIRED derivation.
func (c *Credential) EffectiveStatus(now time.Time) CredentialStatus {
    if c.ExpiredAt(now) {
        return StatusExpired
    }
    return c.Status
}

// Admission records one successful redemption of a credential by a staff
// member.  Rows are written in the same transaction as the counter
// update, so the sum of Quantity over a credential's admissions always
// equals its RedeemedCount.
type Admission struct {
    ID           uint64    // admissions.id
    CredentialID uint64    // admissions.credential_id
    StaffID      uint64    // admissions.staff_id
    Quantity     uint32    // admissions.quantity
    CreatedAt    time.Time // admissions.created_at
}
