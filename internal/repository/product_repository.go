package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/nightpass/admission/internal/model"
)

// ProductRepo reads product definitions.  Products act as the policy
// source for issuance: activity, sale window and per-user caps all live
// on the product row, never in the redemption path.
type ProductRepo struct {
    db *sql.DB
}

// NewProductRepo returns a ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// GetByID loads a single product.  ErrProductNotFound is returned when
// no row exists.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
    const q = `SELECT id, event_id, partner_id, name, tier, price_cents,
                      quantity_per_credential, max_per_user, is_active,
                      sale_starts_at, sale_ends_at, valid_from, valid_until,
                      special_instructions, created_at, updated_at
               FROM products WHERE id = ? LIMIT 1`
    var (
        p            model.Product
        eventID      sql.NullInt64
        partnerID    sql.NullInt64
        saleStarts   sql.NullTime
        saleEnds     sql.NullTime
        validFrom    sql.NullTime
        validUntil   sql.NullTime
        instructions sql.NullString
    )
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &p.ID, &eventID, &partnerID, &p.Name, &p.Tier, &p.PriceCents,
        &p.QuantityPerCredential, &p.MaxPerUser, &p.Active,
        &saleStarts, &saleEnds, &validFrom, &validUntil,
        &instructions, &p.CreatedAt, &p.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrProductNotFound
    }
    if err != nil {
        return nil, err
    }
    if eventID.Valid {
        v := uint64(eventID.Int64)
        p.EventID = &v
    }
    if partnerID.Valid {
        v := uint64(partnerID.Int64)
        p.PartnerID = &v
    }
    if saleStarts.Valid {
        t := saleStarts.Time.UTC()
        p.SaleStartsAt = &t
    }
    if saleEnds.Valid {
        t := saleEnds.Time.UTC()
        p.SaleEndsAt = &t
    }
    if validFrom.Valid {
        t := validFrom.Time.UTC()
        p.ValidFrom = &t
    }
    if validUntil.Valid {
        t := validUntil.Time.UTC()
        p.ValidUntil = &t
    }
    if instructions.Valid {
        s := instructions.String
        p.SpecialInstructions = &s
    }
    return &p, nil
}
