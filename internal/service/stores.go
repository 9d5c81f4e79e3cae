// Package service holds the business core of the admission system: the
// credential issuer, the scan validator with its state machine, and the
// outbound notifier.  Services depend on small store interfaces so the
// core can be exercised without a database; the repository package
// provides the production implementations.
package service

import (
    "context"

    "github.com/nightpass/admission/internal/model"
    "github.com/nightpass/admission/internal/queue"
    "github.com/nightpass/admission/internal/repository"
)

// CredentialStore is the persistence surface the issuer and validator
// require.  Redeem must be atomic per credential row: under concurrent
// callers the sum of successful increments never exceeds the quantity
// and the stored count is exactly the sum of successful increments.
type CredentialStore interface {
    Create(ctx context.Context, cred *model.Credential) error
    GetByCode(ctx context.Context, code string) (*repository.CredentialDetail, error)
    Redeem(ctx context.Context, credentialID uint64, requested uint32, staffID uint64) (*model.Credential, error)
    CountByOwnerAndProduct(ctx context.Context, ownerID, productID uint64) (uint32, error)
}

// ProductStore resolves issuance policy: product existence, activity,
// sale window and per-user caps.
type ProductStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Product, error)
}

// Publisher receives fire-and-forget domain events after state changes
// have committed.  Implementations must swallow their own failures; a
// notification problem can never be conflated with a failed redemption.
type Publisher interface {
    CredentialIssued(ctx context.Context, ev queue.CredentialIssuedEvent)
    CredentialRedeemed(ctx context.Context, ev queue.CredentialRedeemedEvent)
}
