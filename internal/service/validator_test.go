package service

import (
    "context"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/sync/errgroup"

    "github.com/nightpass/admission/internal/model"
    "github.com/nightpass/admission/internal/repository"
)

func seedCredential(store *memStore, code string, quantity uint32) *model.Credential {
    return store.seed(&model.Credential{
        EventID:   ptr(uint64(7)),
        OwnerID:   42,
        ProductID: 10,
        Code:      code,
        Quantity:  quantity,
    }, memMeta{
        holder:  "Dana Cole",
        email:   "dana@example.com",
        product: "Friday General",
        tier:    model.TierGeneral,
    })
}

func eventScope(id uint64) Scope { return Scope{EventID: &id} }

func TestValidator_Validate(t *testing.T) {
    ctx := context.Background()

    t.Run("returns detail and remainder", func(t *testing.T) {
        store := newMemStore()
        seedCredential(store, "ABCDEFGH23", 4)
        v := NewValidator(store, nil)

        res, err := v.Validate(ctx, "ABCDEFGH23", eventScope(7))
        require.NoError(t, err)
        assert.Equal(t, uint32(4), res.Remainder)
        assert.Equal(t, "Dana Cole", res.Credential.HolderName)
        assert.Equal(t, model.StatusPending, res.Credential.Status)
    })

    t.Run("is idempotent", func(t *testing.T) {
        store := newMemStore()
        cred := seedCredential(store, "ABCDEFGH23", 4)
        v := NewValidator(store, nil)

        for n := 0; n < 3; n++ {
            _, err := v.Validate(ctx, "ABCDEFGH23", eventScope(7))
            require.NoError(t, err)
        }
        after := store.get(cred.ID)
        assert.Equal(t, uint32(0), after.RedeemedCount)
        assert.Equal(t, model.StatusPending, after.Status)
    })

    t.Run("unknown code", func(t *testing.T) {
        store := newMemStore()
        v := NewValidator(store, nil)

        _, err := v.Validate(ctx, "ZZZZZZZZ99", eventScope(7))
        assert.ErrorIs(t, err, repository.ErrCredentialNotFound)
    })

    t.Run("scope mismatch wins over state checks", func(t *testing.T) {
        store := newMemStore()
        cred := seedCredential(store, "ABCDEFGH23", 1)
        cred.ValidUntil = ptr(time.Now().UTC().Add(-time.Hour))
        v := NewValidator(store, nil)

        _, err := v.Validate(ctx, "ABCDEFGH23", eventScope(8))
        assert.ErrorIs(t, err, repository.ErrScopeMismatch)
    })

    t.Run("empty scope skips the check", func(t *testing.T) {
        store := newMemStore()
        seedCredential(store, "ABCDEFGH23", 1)
        v := NewValidator(store, nil)

        _, err := v.Validate(ctx, "ABCDEFGH23", Scope{})
        assert.NoError(t, err)
    })

    t.Run("before valid_from", func(t *testing.T) {
        store := newMemStore()
        cred := seedCredential(store, "ABCDEFGH23", 1)
        cred.ValidFrom = ptr(time.Now().UTC().Add(time.Hour))
        v := NewValidator(store, nil)

        _, err := v.Validate(ctx, "ABCDEFGH23", eventScope(7))
        assert.ErrorIs(t, err, repository.ErrValidityWindow)
    })

    t.Run("expired with remainder", func(t *testing.T) {
        store := newMemStore()
        cred := seedCredential(store, "ABCDEFGH23", 2)
        cred.ValidUntil = ptr(time.Now().UTC().Add(-time.Hour))
        v := NewValidator(store, nil)

        _, err := v.Validate(ctx, "ABCDEFGH23", eventScope(7))
        assert.ErrorIs(t, err, repository.ErrExpired)
    })

    t.Run("fully redeemed past the window is already redeemed, not expired", func(t *testing.T) {
        store := newMemStore()
        cred := seedCredential(store, "ABCDEFGH23", 2)
        cred.RedeemedCount = 2
        cred.Status = model.StatusRedeemed
        cred.ValidUntil = ptr(time.Now().UTC().Add(-time.Hour))
        v := NewValidator(store, nil)

        _, err := v.Validate(ctx, "ABCDEFGH23", eventScope(7))
        assert.ErrorIs(t, err, repository.ErrAlreadyRedeemed)
    })
}

func TestValidator_Redeem(t *testing.T) {
    ctx := context.Background()

    t.Run("partial then final redemption", func(t *testing.T) {
        store := newMemStore()
        cred := seedCredential(store, "ABCDEFGH23", 4)
        pub := &memPublisher{}
        v := NewValidator(store, pub)

        res, err := v.Redeem(ctx, "ABCDEFGH23", eventScope(7), 1, 901)
        require.NoError(t, err)
        assert.Equal(t, model.StatusPartiallyUsed, res.Credential.Status)
        assert.Equal(t, uint32(3), res.Remainder)

        res, err = v.Redeem(ctx, "ABCDEFGH23", eventScope(7), 3, 901)
        require.NoError(t, err)
        assert.Equal(t, model.StatusRedeemed, res.Credential.Status)
        assert.Equal(t, uint32(0), res.Remainder)

        _, err = v.Redeem(ctx, "ABCDEFGH23", eventScope(7), 1, 901)
        assert.ErrorIs(t, err, repository.ErrAlreadyRedeemed)

        assert.Equal(t, uint32(4), store.admissionTotal(cred.ID))
        assert.Equal(t, 2, pub.redeemedCount())
    })

    t.Run("requested defaults to one", func(t *testing.T) {
        store := newMemStore()
        seedCredential(store, "ABCDEFGH23", 2)
        v := NewValidator(store, nil)

        res, err := v.Redeem(ctx, "ABCDEFGH23", eventScope(7), 0, 901)
        require.NoError(t, err)
        assert.Equal(t, uint32(1), res.Remainder)
    })

    t.Run("remainder boundaries", func(t *testing.T) {
        store := newMemStore()
        seedCredential(store, "ABCDEFGH23", 5)
        v := NewValidator(store, nil)

        res, err := v.Redeem(ctx, "ABCDEFGH23", eventScope(7), 4, 901)
        require.NoError(t, err)
        assert.Equal(t, uint32(1), res.Remainder)

        _, err = v.Redeem(ctx, "ABCDEFGH23", eventScope(7), 2, 901)
        assert.ErrorIs(t, err, repository.ErrInsufficientRemainder)

        res, err = v.Redeem(ctx, "ABCDEFGH23", eventScope(7), 1, 901)
        require.NoError(t, err)
        assert.Equal(t, uint32(0), res.Remainder)
        assert.Equal(t, model.StatusRedeemed, res.Credential.Status)
    })

    t.Run("scope mismatch leaves state untouched", func(t *testing.T) {
        store := newMemStore()
        cred := seedCredential(store, "ABCDEFGH23", 2)
        pub := &memPublisher{}
        v := NewValidator(store, pub)

        _, err := v.Redeem(ctx, "ABCDEFGH23", eventScope(8), 1, 901)
        assert.ErrorIs(t, err, repository.ErrScopeMismatch)

        after := store.get(cred.ID)
        assert.Equal(t, uint32(0), after.RedeemedCount)
        assert.Equal(t, model.StatusPending, after.Status)
        assert.Zero(t, store.admissionTotal(cred.ID))
        assert.Zero(t, pub.redeemedCount())
    })

    t.Run("records the redeeming staff member", func(t *testing.T) {
        store := newMemStore()
        cred := seedCredential(store, "ABCDEFGH23", 2)
        v := NewValidator(store, nil)

        _, err := v.Redeem(ctx, "ABCDEFGH23", eventScope(7), 1, 901)
        require.NoError(t, err)

        after := store.get(cred.ID)
        require.NotNil(t, after.LastRedeemedBy)
        assert.Equal(t, uint64(901), *after.LastRedeemedBy)
        assert.NotNil(t, after.LastRedeemedAt)
    })

    t.Run("single-use code admits exactly one of two racing scans", func(t *testing.T) {
        store := newMemStore()
        cred := seedCredential(store, "A1B2C3D4E5", 1)
        v := NewValidator(store, nil)

        var successes, denials atomic.Int32
        var g errgroup.Group
        for n := 0; n < 2; n++ {
            staff := uint64(901 + n)
            g.Go(func() error {
                _, err := v.Redeem(ctx, "A1B2C3D4E5", eventScope(7), 1, staff)
                switch {
                case err == nil:
                    successes.Add(1)
                case err == repository.ErrAlreadyRedeemed || err == repository.ErrInsufficientRemainder:
                    denials.Add(1)
                default:
                    return err
                }
                return nil
            })
        }
        require.NoError(t, g.Wait())

        assert.Equal(t, int32(1), successes.Load())
        assert.Equal(t, int32(1), denials.Load())
        after := store.get(cred.ID)
        assert.Equal(t, uint32(1), after.RedeemedCount)
        assert.Equal(t, model.StatusRedeemed, after.Status)
    })

    t.Run("count never exceeds quantity under contention", func(t *testing.T) {
        const quantity = 50
        const scanners = 100

        store := newMemStore()
        cred := seedCredential(store, "ABCDEFGH23", quantity)
        v := NewValidator(store, nil)

        var successes atomic.Int32
        var g errgroup.Group
        for n := 0; n < scanners; n++ {
            staff := uint64(901 + n)
            g.Go(func() error {
                _, err := v.Redeem(ctx, "ABCDEFGH23", eventScope(7), 1, staff)
                if err == nil {
                    successes.Add(1)
                    return nil
                }
                if err == repository.ErrAlreadyRedeemed || err == repository.ErrInsufficientRemainder {
                    return nil
                }
                return err
            })
        }
        require.NoError(t, g.Wait())

        assert.Equal(t, int32(quantity), successes.Load())
        after := store.get(cred.ID)
        assert.Equal(t, uint32(quantity), after.RedeemedCount)
        assert.Equal(t, model.StatusRedeemed, after.Status)
        assert.Equal(t, uint32(quantity), store.admissionTotal(cred.ID))
    })
}
