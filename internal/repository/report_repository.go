package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/nightpass/admission/internal/model"
)

// ReportRepo derives dashboards from credential history.  Every method
// is a pure read: no report ever writes, and an empty result set yields
// zero-valued structures rather than an error.
type ReportRepo struct {
    db *sql.DB
}

// NewReportRepo returns a ReportRepo bound to the given database.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// ReportFilter narrows report queries.  Nil fields leave the dimension
// unconstrained.  From is inclusive, To exclusive.
type ReportFilter struct {
    EventID *uint64
    From    *time.Time
    To      *time.Time
}

// clauses builds a WHERE fragment and its arguments for the filter.  The
// column names for the event and timestamp dimensions vary per query, so
// callers pass them in.
func (f ReportFilter) clauses(eventCol, timeCol string) (string, []interface{}) {
    conds := make([]string, 0, 3)
    args := make([]interface{}, 0, 3)
    if f.EventID != nil {
        conds = append(conds, eventCol+" = ?")
        args = append(args, *f.EventID)
    }
    if f.From != nil {
        conds = append(conds, timeCol+" >= ?")
        args = append(args, f.From.UTC())
    }
    if f.To != nil {
        conds = append(conds, timeCol+" < ?")
        args = append(args, f.To.UTC())
    }
    if len(conds) == 0 {
        return "", args
    }
    return " WHERE " + strings.Join(conds, " AND "), args
}

// TierTotals aggregates issuance and admission per product tier.
type TierTotals struct {
    Tier     model.ProductTier `json:"tier"`
    Issued   uint64            `json:"issued"`   // credentials created
    Capacity uint64            `json:"capacity"` // total units grantable
    Admitted uint64            `json:"admitted"` // units consumed
}

// AdmissionReport is the generated-versus-admitted dashboard.
type AdmissionReport struct {
    Issued   uint64       `json:"issued"`
    Capacity uint64       `json:"capacity"`
    Admitted uint64       `json:"admitted"`
    ByTier   []TierTotals `json:"by_tier"`
}

// AdmissionTotals reports totals generated vs admitted split by product
// tier.  The date range applies to credential creation time.
func (r *ReportRepo) AdmissionTotals(ctx context.Context, f ReportFilter) (*AdmissionReport, error) {
    where, args := f.clauses("c.event_id", "c.created_at")
    q := `SELECT p.tier, COUNT(*), COALESCE(SUM(c.quantity), 0), COALESCE(SUM(c.redeemed_count), 0)
          FROM credentials c
          JOIN products p ON p.id = c.product_id` + where + `
          GROUP BY p.tier
          ORDER BY p.tier`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    rep := &AdmissionReport{ByTier: make([]TierTotals, 0, 4)}
    for rows.Next() {
        var t TierTotals
        if err := rows.Scan(&t.Tier, &t.Issued, &t.Capacity, &t.Admitted); err != nil {
            return nil, err
        }
        rep.Issued += t.Issued
        rep.Capacity += t.Capacity
        rep.Admitted += t.Admitted
        rep.ByTier = append(rep.ByTier, t)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return rep, nil
}

// StaffPerformance aggregates a staff member's scanning activity.
type StaffPerformance struct {
    StaffID         uint64 `json:"staff_id"`
    StaffName       string `json:"staff_name"`
    Email           string `json:"email"`
    Scans           uint64 `json:"scans"`
    GuestsAdmitted  uint64 `json:"guests_admitted"`
    VIPAdmitted     uint64 `json:"vip_admitted"`
    GeneralAdmitted uint64 `json:"general_admitted"`
}

// StaffPerformanceReport ranks staff by guests admitted over the
// admissions ledger.  The date range applies to scan time.
func (r *ReportRepo) StaffPerformanceReport(ctx context.Context, f ReportFilter) ([]StaffPerformance, error) {
    where, args := f.clauses("c.event_id", "a.created_at")
    q := `SELECT u.id, u.display_name, u.email,
                 COUNT(a.id),
                 COALESCE(SUM(a.quantity), 0),
                 COALESCE(SUM(CASE WHEN p.tier IN ('VIP', 'TABLE') THEN a.quantity ELSE 0 END), 0),
                 COALESCE(SUM(CASE WHEN p.tier NOT IN ('VIP', 'TABLE') THEN a.quantity ELSE 0 END), 0)
          FROM admissions a
          JOIN credentials c ON c.id = a.credential_id
          JOIN products p ON p.id = c.product_id
          JOIN users u ON u.id = a.staff_id` + where + `
          GROUP BY u.id, u.display_name, u.email
          ORDER BY COALESCE(SUM(a.quantity), 0) DESC, u.email`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]StaffPerformance, 0)
    for rows.Next() {
        var s StaffPerformance
        if err := rows.Scan(&s.StaffID, &s.StaffName, &s.Email,
            &s.Scans, &s.GuestsAdmitted, &s.VIPAdmitted, &s.GeneralAdmitted); err != nil {
            return nil, err
        }
        if s.StaffName == "" {
            s.StaffName = s.Email
        }
        out = append(out, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// AttendanceRank counts the distinct events an owner has actually
// attended (at least one unit redeemed).
type AttendanceRank struct {
    OwnerID        uint64 `json:"owner_id"`
    OwnerName      string `json:"owner_name"`
    Email          string `json:"email"`
    EventsAttended uint64 `json:"events_attended"`
}

// AttendanceRanking ranks owners by distinct events attended.  The date
// range applies to the event start time, so "attendance in March" means
// events held in March regardless of when the scan happened.
func (r *ReportRepo) AttendanceRanking(ctx context.Context, f ReportFilter) ([]AttendanceRank, error) {
    where, args := f.clauses("c.event_id", "e.starts_at")
    q := `SELECT c.owner_id, u.display_name, u.email, COUNT(DISTINCT c.event_id)
          FROM credentials c
          JOIN events e ON e.id = c.event_id
          JOIN users u ON u.id = c.owner_id` + andWhere(where, "c.redeemed_count > 0") + `
          GROUP BY c.owner_id, u.display_name, u.email
          ORDER BY COUNT(DISTINCT c.event_id) DESC, u.email
          LIMIT 100`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]AttendanceRank, 0)
    for rows.Next() {
        var a AttendanceRank
        if err := rows.Scan(&a.OwnerID, &a.OwnerName, &a.Email, &a.EventsAttended); err != nil {
            return nil, err
        }
        if a.OwnerName == "" {
            a.OwnerName = a.Email
        }
        out = append(out, a)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// FullAttendanceReport lists owners who redeemed in every event held in
// the queried date range.
type FullAttendanceReport struct {
    EventsInRange uint64           `json:"events_in_range"`
    Owners        []AttendanceRank `json:"owners"`
}

// FullAttendance computes the owners with perfect attendance over the
// events starting inside [from, to).  When the range holds no events the
// report is all zeros, never an error.
func (r *ReportRepo) FullAttendance(ctx context.Context, from, to time.Time) (*FullAttendanceReport, error) {
    rep := &FullAttendanceReport{Owners: make([]AttendanceRank, 0)}
    const totalQ = `SELECT COUNT(*) FROM events WHERE starts_at >= ? AND starts_at < ?`
    if err := r.db.QueryRowContext(ctx, totalQ, from.UTC(), to.UTC()).Scan(&rep.EventsInRange); err != nil {
        return nil, err
    }
    if rep.EventsInRange == 0 {
        return rep, nil
    }
    const q = `SELECT c.owner_id, u.display_name, u.email, COUNT(DISTINCT c.event_id)
               FROM credentials c
               JOIN events e ON e.id = c.event_id
               JOIN users u ON u.id = c.owner_id
               WHERE c.redeemed_count > 0 AND e.starts_at >= ? AND e.starts_at < ?
               GROUP BY c.owner_id, u.display_name, u.email
               HAVING COUNT(DISTINCT c.event_id) = ?
               ORDER BY u.email`
    rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC(), rep.EventsInRange)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var a AttendanceRank
        if err := rows.Scan(&a.OwnerID, &a.OwnerName, &a.Email, &a.EventsAttended); err != nil {
            return nil, err
        }
        if a.OwnerName == "" {
            a.OwnerName = a.Email
        }
        rep.Owners = append(rep.Owners, a)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return rep, nil
}

// andWhere appends a fixed condition to a possibly empty WHERE fragment.
func andWhere(where, cond string) string {
    if where == "" {
        return " WHERE " + cond
    }
    return where + " AND " + cond
}
