// Package repository defines the data access layer and the sentinel
// errors shared across it.  Handlers and services compare against these
// values with errors.Is to map failures onto precise scan-denial reasons
// and HTTP statuses.
package repository

import "errors"

// ErrCredentialNotFound is returned when no credential carries the
// presented code or identifier in any scope.
var ErrCredentialNotFound = errors.New("credential not found")

// ErrProductNotFound is returned when an issuance request references a
// product that does not exist.
var ErrProductNotFound = errors.New("product not found")

// ErrDuplicateCode is returned when an insert collides with an existing
// code inside the same scope.  The issuer reacts by regenerating the
// code and retrying a bounded number of times.
var ErrDuplicateCode = errors.New("code already exists in scope")

// ErrScopeMismatch is returned when a scan presents a valid code at the
// wrong event or partner.
var ErrScopeMismatch = errors.New("credential not valid for this scope")

// ErrExpired is returned when a credential's validity window has closed
// while units were still outstanding.
var ErrExpired = errors.New("credential expired")

// ErrAlreadyRedeemed is returned when every unit of a credential has
// been consumed.
var ErrAlreadyRedeemed = errors.New("credential already fully redeemed")

// ErrInsufficientRemainder is returned when a redemption requests more
// units than remain.  The stored count is left untouched.
var ErrInsufficientRemainder = errors.New("requested quantity exceeds remainder")

// ErrProductInactive is returned when issuance is attempted against a
// deactivated product.
var ErrProductInactive = errors.New("product inactive")

// ErrValidityWindow is returned when an operation falls outside the
// relevant validity window: issuing outside the product's sale window,
// or scanning before a credential's valid_from.
var ErrValidityWindow = errors.New("outside validity window")

// ErrQuotaExceeded is returned when issuing would exceed the product's
// per-user cap.
var ErrQuotaExceeded = errors.New("per-user limit reached")

// ErrTxContention is returned after the bounded retry of a deadlocked or
// lock-timed-out redemption transaction is exhausted.  It is the only
// transient error in the taxonomy; callers surface it so the staff
// device simply re-scans.
var ErrTxContention = errors.New("transaction contention, retry scan")
