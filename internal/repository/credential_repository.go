package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"
    "github.com/google/uuid"

    "github.com/nightpass/admission/internal/model"
)

// CredentialRepo owns all persistence for credentials and the admissions
// ledger rows derived from them.  The redeemed_count/quantity invariant
// is enforced here: the counter is only ever changed inside Redeem,
// under a row lock, and never anywhere else.
type CredentialRepo struct {
    db *sql.DB
}

// NewCredentialRepo returns a CredentialRepo bound to the given database.
func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{db: db} }

// DB exposes the underlying handle for callers that need to open their
// own transactions.
func (r *CredentialRepo) DB() *sql.DB { return r.db }

// redeemAttempts bounds the automatic retry of deadlocked redemption
// transactions before ErrTxContention is surfaced.
const redeemAttempts = 3

// CredentialDetail is the read model returned to validation and listing
// callers: the credential itself plus the display context the scanning
// UI renders (holder identity, product name, VIP flag, instructions).
type CredentialDetail struct {
    model.Credential
    HolderName          string            `json:"holder_name"`
    HolderEmail         string            `json:"holder_email"`
    ProductName         string            `json:"product_name"`
    Tier                model.ProductTier `json:"tier"`
    SpecialInstructions *string           `json:"special_instructions,omitempty"`
}

const credentialCols = `c.id, c.public_id, c.event_id, c.partner_id, c.owner_id, c.product_id,
       c.code, c.quantity, c.redeemed_count, c.status, c.valid_from, c.valid_until,
       c.last_redeemed_by, c.last_redeemed_at, c.created_at, c.updated_at`

const detailCols = credentialCols + `,
       u.display_name, u.email, p.name, p.tier, p.special_instructions`

const detailJoins = ` FROM credentials c
       JOIN users u ON u.id = c.owner_id
       JOIN products p ON p.id = c.product_id`

// rowScanner lets the scan helpers accept both *sql.Row and *sql.Rows.
type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanCredential(row rowScanner, extra ...interface{}) (*model.Credential, error) {
    var (
        cred       model.Credential
        publicID   string
        eventID    sql.NullInt64
        partnerID  sql.NullInt64
        validFrom  sql.NullTime
        validUntil sql.NullTime
        redeemedBy sql.NullInt64
        redeemedAt sql.NullTime
    )
    dest := []interface{}{
        &cred.ID, &publicID, &eventID, &partnerID, &cred.OwnerID, &cred.ProductID,
        &cred.Code, &cred.Quantity, &cred.RedeemedCount, &cred.Status, &validFrom, &validUntil,
        &redeemedBy, &redeemedAt, &cred.CreatedAt, &cred.UpdatedAt,
    }
    dest = append(dest, extra...)
    if err := row.Scan(dest...); err != nil {
        return nil, err
    }
    uid, err := uuid.Parse(publicID)
    if err != nil {
        return nil, err
    }
    cred.PublicID = uid
    if eventID.Valid {
        v := uint64(eventID.Int64)
        cred.EventID = &v
    }
    if partnerID.Valid {
        v := uint64(partnerID.Int64)
        cred.PartnerID = &v
    }
    if validFrom.Valid {
        t := validFrom.Time.UTC()
        cred.ValidFrom = &t
    }
    if validUntil.Valid {
        t := validUntil.Time.UTC()
        cred.ValidUntil = &t
    }
    if redeemedBy.Valid {
        v := uint64(redeemedBy.Int64)
        cred.LastRedeemedBy = &v
    }
    if redeemedAt.Valid {
        t := redeemedAt.Time.UTC()
        cred.LastRedeemedAt = &t
    }
    return &cred, nil
}

func scanDetail(row rowScanner) (*CredentialDetail, error) {
    var (
        det          CredentialDetail
        instructions sql.NullString
    )
    cred, err := scanCredential(row,
        &det.HolderName, &det.HolderEmail, &det.ProductName, &det.Tier, &instructions)
    if err != nil {
        return nil, err
    }
    det.Credential = *cred
    if det.HolderName == "" {
        det.HolderName = det.HolderEmail
    }
    if instructions.Valid {
        s := instructions.String
        det.SpecialInstructions = &s
    }
    return &det, nil
}

// nullID converts an optional foreign key into a driver value.
func nullID(p *uint64) interface{} {
    if p == nil {
        return nil
    }
    return *p
}

// nullStamp converts an optional timestamp into a driver value in UTC.
func nullStamp(t *time.Time) interface{} {
    if t == nil {
        return nil
    }
    return t.UTC()
}

// Create inserts a single credential row, status PENDING, redeemed_count
// zero.  A collision with the per-scope unique code index is mapped to
// ErrDuplicateCode so the issuer can regenerate and retry.  On success
// the generated ID and DB-assigned timestamps are populated on cred.
func (r *CredentialRepo) Create(ctx context.Context, cred *model.Credential) error {
    const q = `INSERT INTO credentials
        (public_id, event_id, partner_id, owner_id, product_id, code, quantity, status, valid_from, valid_until)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        cred.PublicID.String(), nullID(cred.EventID), nullID(cred.PartnerID),
        cred.OwnerID, cred.ProductID, cred.Code, cred.Quantity,
        string(model.StatusPending), nullStamp(cred.ValidFrom), nullStamp(cred.ValidUntil),
    )
    if err != nil {
        var me *mysql.MySQLError
        if errors.As(err, &me) && me.Number == 1062 {
            return ErrDuplicateCode
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    cred.ID = uint64(id)
    cred.Status = model.StatusPending
    cred.RedeemedCount = 0
    // Query back DB-assigned timestamps so the caller returns the row as stored.
    const sel = `SELECT created_at, updated_at FROM credentials WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, cred.ID).Scan(&cred.CreatedAt, &cred.UpdatedAt)
}

// GetByCode loads a credential with its display context by scan code.
// Codes carry 2^50 of entropy, so a global lookup is unambiguous in
// practice; scope enforcement happens in the validator against the
// loaded row, not in the query.
func (r *CredentialRepo) GetByCode(ctx context.Context, code string) (*CredentialDetail, error) {
    q := `SELECT ` + detailCols + detailJoins + ` WHERE c.code = ? LIMIT 1`
    det, err := scanDetail(r.db.QueryRowContext(ctx, q, code))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrCredentialNotFound
    }
    return det, err
}

// GetByPublicID loads a credential with its display context by the
// opaque identifier exposed to clients.
func (r *CredentialRepo) GetByPublicID(ctx context.Context, id uuid.UUID) (*CredentialDetail, error) {
    q := `SELECT ` + detailCols + detailJoins + ` WHERE c.public_id = ? LIMIT 1`
    det, err := scanDetail(r.db.QueryRowContext(ctx, q, id.String()))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrCredentialNotFound
    }
    return det, err
}

// ListByOwner returns all credentials held by a user, newest first.
// When the user holds none, an empty slice is returned.
func (r *CredentialRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]CredentialDetail, error) {
    q := `SELECT ` + detailCols + detailJoins + ` WHERE c.owner_id = ? ORDER BY c.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, ownerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]CredentialDetail, 0)
    for rows.Next() {
        det, err := scanDetail(rows)
        if err != nil {
            return nil, err
        }
        details = append(details, *det)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return details, nil
}

// CountByOwnerAndProduct returns how many credentials of a product have
// already been issued to an owner.  The issuer uses it to enforce
// per-user caps before writing anything.
func (r *CredentialRepo) CountByOwnerAndProduct(ctx context.Context, ownerID, productID uint64) (uint32, error) {
    const q = `SELECT COUNT(*) FROM credentials WHERE owner_id = ? AND product_id = ?`
    var n uint32
    err := r.db.QueryRowContext(ctx, q, ownerID, productID).Scan(&n)
    return n, err
}

// Redeem applies a bounded increment to a credential's redeemed count.
// The whole operation runs in one transaction that locks the credential
// row, re-reads the current count, checks the bound and writes both the
// updated counter and an admissions ledger row.  Deadlocks and lock wait
// timeouts are retried up to redeemAttempts times; every other failure,
// including the domain denials, is returned as-is.  On success the
// updated credential is returned.
func (r *CredentialRepo) Redeem(ctx context.Context, credentialID uint64, requested uint32, staffID uint64) (*model.Credential, error) {
    if requested == 0 {
        return nil, ErrInsufficientRemainder
    }
    for attempt := 0; attempt < redeemAttempts; attempt++ {
        cred, err := r.redeemOnce(ctx, credentialID, requested, staffID)
        if err == nil {
            return cred, nil
        }
        if !isRetryable(err) {
            return nil, err
        }
        // Brief backoff before re-running the transaction.
        select {
        case <-ctx.Done():
            return nil, ctx.Err()
        case <-time.After(time.Duration(attempt+1) * 25 * time.Millisecond):
        }
    }
    return nil, ErrTxContention
}

func (r *CredentialRepo) redeemOnce(ctx context.Context, credentialID uint64, requested uint32, staffID uint64) (*model.Credential, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Lock the row and re-read the counter inside the transaction.  This
    // is the serialization point for concurrent scans of the same code.
    const lockQ = `SELECT quantity, redeemed_count FROM credentials WHERE id = ? FOR UPDATE`
    var quantity, redeemed uint32
    if err := tx.QueryRowContext(ctx, lockQ, credentialID).Scan(&quantity, &redeemed); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrCredentialNotFound
        }
        return nil, err
    }
    if redeemed >= quantity {
        return nil, ErrAlreadyRedeemed
    }
    if requested > quantity-redeemed {
        return nil, ErrInsufficientRemainder
    }

    newCount := redeemed + requested
    status := model.StatusFor(newCount, quantity)
    const updQ = `UPDATE credentials
        SET redeemed_count = ?, status = ?, last_redeemed_by = ?, last_redeemed_at = UTC_TIMESTAMP()
        WHERE id = ?`
    if _, err := tx.ExecContext(ctx, updQ, newCount, string(status), staffID, credentialID); err != nil {
        return nil, err
    }
    const admQ = `INSERT INTO admissions (credential_id, staff_id, quantity) VALUES (?, ?, ?)`
    if _, err := tx.ExecContext(ctx, admQ, credentialID, staffID, requested); err != nil {
        return nil, err
    }

    // Read the row back before committing so the response reflects the
    // exact stored state, including DB-side timestamps.
    q := `SELECT ` + credentialCols + ` FROM credentials c WHERE c.id = ?`
    cred, err := scanCredential(tx.QueryRowContext(ctx, q, credentialID))
    if err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return cred, nil
}

// isRetryable reports whether the error is a MySQL deadlock (1213) or
// lock wait timeout (1205), the only failures Redeem retries.
func isRetryable(err error) bool {
    var me *mysql.MySQLError
    if !errors.As(err, &me) {
        return false
    }
    return me.Number == 1213 || me.Number == 1205
}
