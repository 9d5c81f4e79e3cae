package service

import (
    "context"
    "time"

    "github.com/nightpass/admission/internal/model"
    "github.com/nightpass/admission/internal/queue"
    "github.com/nightpass/admission/internal/repository"
)

// Scope is the context a scanning device presents alongside a code: the
// event whose door is being worked, or the partner venue honoring a
// coupon.  An empty scope skips the check (admin tooling).
type Scope struct {
    EventID   *uint64
    PartnerID *uint64
}

// Matches reports whether the credential is valid within this scope.
// Every provided dimension must agree with the credential's own scope.
func (s Scope) Matches(c *model.Credential) bool {
    if s.EventID != nil && (c.EventID == nil || *c.EventID != *s.EventID) {
        return false
    }
    if s.PartnerID != nil && (c.PartnerID == nil || *c.PartnerID != *s.PartnerID) {
        return false
    }
    return true
}

// ScanResult is what a scanning device gets back: the credential with
// its display context and the units still redeemable.
type ScanResult struct {
    Credential *repository.CredentialDetail
    Remainder  uint32
}

// Validator drives the credential state machine:
//
//	PENDING --partial redeem--> PARTIALLY_USED --remainder redeem--> REDEEMED
//	PENDING --full redeem--> REDEEMED
//
// EXPIRED is only ever derived at read time from the validity window;
// the validator never stores a transition into it.
type Validator struct {
    creds CredentialStore
    pub   Publisher
    now   func() time.Time
}

// NewValidator constructs a Validator.  pub may be nil to disable events.
func NewValidator(creds CredentialStore, pub Publisher) *Validator {
    if creds == nil {
        panic("nil store passed to NewValidator")
    }
    return &Validator{creds: creds, pub: pub, now: time.Now}
}

// Validate checks a code without consuming anything.  It returns, in
// this order of precedence: repository.ErrCredentialNotFound,
// repository.ErrScopeMismatch, repository.ErrValidityWindow (scanned
// before valid_from), repository.ErrExpired, or
// repository.ErrAlreadyRedeemed.  Otherwise the credential and its
// remainder are returned.  Validate never mutates state.
func (v *Validator) Validate(ctx context.Context, code string, scope Scope) (*ScanResult, error) {
    det, err := v.creds.GetByCode(ctx, code)
    if err != nil {
        return nil, err
    }
    if !scope.Matches(&det.Credential) {
        return nil, repository.ErrScopeMismatch
    }
    now := v.now().UTC()
    if det.ValidFrom != nil && now.Before(*det.ValidFrom) {
        return nil, repository.ErrValidityWindow
    }
    if det.ExpiredAt(now) {
        return nil, repository.ErrExpired
    }
    if det.Status == model.StatusRedeemed {
        return nil, repository.ErrAlreadyRedeemed
    }
    return &ScanResult{Credential: det, Remainder: det.Remainder()}, nil
}

// Redeem consumes requested units (default 1) from the credential behind
// a code.  It re-validates, pre-checks the remainder, then hands the
// bounded increment to the store, which re-checks the bound under a row
// lock; the pre-check only exists to fail fast with a precise reason.
// On success the redeemed event is published outside the transaction and
// the updated credential is returned.
func (v *Validator) Redeem(ctx context.Context, code string, scope Scope, requested uint32, staffID uint64) (*ScanResult, error) {
    if requested == 0 {
        requested = 1
    }
    res, err := v.Validate(ctx, code, scope)
    if err != nil {
        return nil, err
    }
    if requested > res.Remainder {
        return nil, repository.ErrInsufficientRemainder
    }

    cred, err := v.creds.Redeem(ctx, res.Credential.ID, requested, staffID)
    if err != nil {
        return nil, err
    }
    res.Credential.Credential = *cred
    res.Remainder = cred.Remainder()

    if v.pub != nil {
        redeemedAt := v.now().UTC()
        if cred.LastRedeemedAt != nil {
            redeemedAt = *cred.LastRedeemedAt
        }
        v.pub.CredentialRedeemed(ctx, queue.CredentialRedeemedEvent{
            CredentialID: cred.PublicID.String(),
            Code:         cred.Code,
            EventID:      cred.EventID,
            PartnerID:    cred.PartnerID,
            OwnerID:      cred.OwnerID,
            StaffID:      staffID,
            Quantity:     requested,
            Remainder:    res.Remainder,
            Status:       string(cred.Status),
            RedeemedAt:   redeemedAt.Format(time.RFC3339),
        })
    }
    return res, nil
}
