package service

import (
    "context"
    "time"

    "github.com/google/uuid"

    "github.com/nightpass/admission/internal/codegen"
    "github.com/nightpass/admission/internal/model"
    "github.com/nightpass/admission/internal/queue"
    "github.com/nightpass/admission/internal/repository"
)

// issueCodeAttempts bounds the regenerate-and-retry loop when a freshly
// generated code collides with an existing one inside the scope.
const issueCodeAttempts = 5

// IssueRequest describes one credential to create.
type IssueRequest struct {
    OwnerID   uint64
    ProductID uint64
    Quantity  uint32 // 0 means the product's default
}

// Issuer creates credentials.  All preconditions are checked before any
// row is written, so a rejected issuance leaves no partial state.
type Issuer struct {
    creds    CredentialStore
    products ProductStore
    pub      Publisher
    now      func() time.Time
}

// NewIssuer constructs an Issuer.  pub may be nil to disable events.
func NewIssuer(creds CredentialStore, products ProductStore, pub Publisher) *Issuer {
    if creds == nil || products == nil {
        panic("nil store passed to NewIssuer")
    }
    return &Issuer{creds: creds, products: products, pub: pub, now: time.Now}
}

// Issue validates the product policy and inserts exactly one credential
// with status PENDING and a freshly generated code.  Failure modes, all
// raised before any write: repository.ErrProductNotFound,
// repository.ErrProductInactive, repository.ErrValidityWindow and
// repository.ErrQuotaExceeded.
func (i *Issuer) Issue(ctx context.Context, req IssueRequest) (*model.Credential, error) {
    p, err := i.products.GetByID(ctx, req.ProductID)
    if err != nil {
        return nil, err
    }
    if !p.Active {
        return nil, repository.ErrProductInactive
    }
    now := i.now().UTC()
    if !p.SaleOpenAt(now) {
        return nil, repository.ErrValidityWindow
    }
    if p.MaxPerUser > 0 {
        issued, err := i.creds.CountByOwnerAndProduct(ctx, req.OwnerID, req.ProductID)
        if err != nil {
            return nil, err
        }
        if issued >= p.MaxPerUser {
            return nil, repository.ErrQuotaExceeded
        }
    }

    quantity := req.Quantity
    if quantity == 0 {
        quantity = p.QuantityPerCredential
    }
    if quantity == 0 {
        quantity = 1
    }

    cred := &model.Credential{
        PublicID:   uuid.New(),
        EventID:    p.EventID,
        PartnerID:  p.PartnerID,
        OwnerID:    req.OwnerID,
        ProductID:  p.ID,
        Quantity:   quantity,
        Status:     model.StatusPending,
        ValidFrom:  p.ValidFrom,
        ValidUntil: p.ValidUntil,
    }

    // Collisions are negligible by construction, but the unique index is
    // authoritative: regenerate and retry instead of failing issuance.
    err = repository.ErrDuplicateCode
    for attempt := 0; attempt < issueCodeAttempts && err == repository.ErrDuplicateCode; attempt++ {
        cred.Code, err = codegen.Generate()
        if err != nil {
            return nil, err
        }
        err = i.creds.Create(ctx, cred)
    }
    if err != nil {
        return nil, err
    }

    if i.pub != nil {
        i.pub.CredentialIssued(ctx, queue.CredentialIssuedEvent{
            CredentialID: cred.PublicID.String(),
            Code:         cred.Code,
            EventID:      cred.EventID,
            PartnerID:    cred.PartnerID,
            OwnerID:      cred.OwnerID,
            ProductID:    cred.ProductID,
            ProductName:  p.Name,
            Quantity:     cred.Quantity,
            IssuedAt:     now.Format(time.RFC3339),
        })
    }
    return cred, nil
}
