package service

import (
    "context"
    "testing"
    "time"

    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/nightpass/admission/internal/codegen"
    "github.com/nightpass/admission/internal/model"
    "github.com/nightpass/admission/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func activeProduct(id uint64) *model.Product {
    return &model.Product{
        ID:                    id,
        EventID:               ptr(uint64(7)),
        Name:                  "Friday General",
        Tier:                  model.TierGeneral,
        QuantityPerCredential: 2,
        Active:                true,
    }
}

func TestIssuer_Issue(t *testing.T) {
    ctx := context.Background()

    t.Run("creates pending credential with product defaults", func(t *testing.T) {
        store := newMemStore()
        store.addProduct(activeProduct(10))
        pub := &memPublisher{}
        issuer := NewIssuer(store, store, pub)

        cred, err := issuer.Issue(ctx, IssueRequest{OwnerID: 42, ProductID: 10})
        require.NoError(t, err)

        assert.Equal(t, model.StatusPending, cred.Status)
        assert.Equal(t, uint32(2), cred.Quantity)
        assert.Equal(t, uint32(0), cred.RedeemedCount)
        assert.Len(t, cred.Code, codegen.Length)
        assert.NotEqual(t, uuid.Nil, cred.PublicID)
        require.NotNil(t, cred.EventID)
        assert.Equal(t, uint64(7), *cred.EventID)
        assert.Nil(t, cred.PartnerID)

        require.Len(t, pub.issued, 1)
        assert.Equal(t, cred.Code, pub.issued[0].Code)
        assert.Equal(t, "Friday General", pub.issued[0].ProductName)
    })

    t.Run("explicit quantity overrides product default", func(t *testing.T) {
        store := newMemStore()
        store.addProduct(activeProduct(10))
        issuer := NewIssuer(store, store, nil)

        cred, err := issuer.Issue(ctx, IssueRequest{OwnerID: 42, ProductID: 10, Quantity: 6})
        require.NoError(t, err)
        assert.Equal(t, uint32(6), cred.Quantity)
    })

    t.Run("unknown product", func(t *testing.T) {
        store := newMemStore()
        issuer := NewIssuer(store, store, nil)

        _, err := issuer.Issue(ctx, IssueRequest{OwnerID: 42, ProductID: 99})
        assert.ErrorIs(t, err, repository.ErrProductNotFound)
    })

    t.Run("inactive product", func(t *testing.T) {
        store := newMemStore()
        p := activeProduct(10)
        p.Active = false
        store.addProduct(p)
        issuer := NewIssuer(store, store, nil)

        _, err := issuer.Issue(ctx, IssueRequest{OwnerID: 42, ProductID: 10})
        assert.ErrorIs(t, err, repository.ErrProductInactive)
    })

    t.Run("sale window not open", func(t *testing.T) {
        store := newMemStore()
        p := activeProduct(10)
        p.SaleStartsAt = ptr(time.Now().UTC().Add(time.Hour))
        store.addProduct(p)
        issuer := NewIssuer(store, store, nil)

        _, err := issuer.Issue(ctx, IssueRequest{OwnerID: 42, ProductID: 10})
        assert.ErrorIs(t, err, repository.ErrValidityWindow)
    })

    t.Run("sale window closed", func(t *testing.T) {
        store := newMemStore()
        p := activeProduct(10)
        p.SaleEndsAt = ptr(time.Now().UTC().Add(-time.Hour))
        store.addProduct(p)
        issuer := NewIssuer(store, store, nil)

        _, err := issuer.Issue(ctx, IssueRequest{OwnerID: 42, ProductID: 10})
        assert.ErrorIs(t, err, repository.ErrValidityWindow)
    })

    t.Run("per-user quota", func(t *testing.T) {
        store := newMemStore()
        p := activeProduct(10)
        p.MaxPerUser = 2
        store.addProduct(p)
        issuer := NewIssuer(store, store, nil)

        for n := 0; n < 2; n++ {
            _, err := issuer.Issue(ctx, IssueRequest{OwnerID: 42, ProductID: 10})
            require.NoError(t, err)
        }
        _, err := issuer.Issue(ctx, IssueRequest{OwnerID: 42, ProductID: 10})
        assert.ErrorIs(t, err, repository.ErrQuotaExceeded)

        // A different owner is unaffected by someone else's quota.
        _, err = issuer.Issue(ctx, IssueRequest{OwnerID: 43, ProductID: 10})
        assert.NoError(t, err)
    })

    t.Run("regenerates on code collision", func(t *testing.T) {
        store := newMemStore()
        store.addProduct(activeProduct(10))
        store.dupesToInject = issueCodeAttempts - 1
        issuer := NewIssuer(store, store, nil)

        cred, err := issuer.Issue(ctx, IssueRequest{OwnerID: 42, ProductID: 10})
        require.NoError(t, err)
        assert.Len(t, cred.Code, codegen.Length)
    })

    t.Run("gives up after exhausting collision retries", func(t *testing.T) {
        store := newMemStore()
        store.addProduct(activeProduct(10))
        store.dupesToInject = issueCodeAttempts
        issuer := NewIssuer(store, store, nil)

        _, err := issuer.Issue(ctx, IssueRequest{OwnerID: 42, ProductID: 10})
        assert.ErrorIs(t, err, repository.ErrDuplicateCode)
    })
}
