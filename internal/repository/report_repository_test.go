package repository

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestReportFilter_Clauses(t *testing.T) {
    ev := uint64(7)
    from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
    to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

    t.Run("empty filter yields no clause", func(t *testing.T) {
        where, args := ReportFilter{}.clauses("c.event_id", "a.created_at")
        assert.Empty(t, where)
        assert.Empty(t, args)
    })

    t.Run("event only", func(t *testing.T) {
        where, args := ReportFilter{EventID: &ev}.clauses("c.event_id", "a.created_at")
        assert.Equal(t, " WHERE c.event_id = ?", where)
        assert.Equal(t, []interface{}{ev}, args)
    })

    t.Run("full filter, from inclusive and to exclusive", func(t *testing.T) {
        f := ReportFilter{EventID: &ev, From: &from, To: &to}
        where, args := f.clauses("c.event_id", "a.created_at")
        assert.Equal(t, " WHERE c.event_id = ? AND a.created_at >= ? AND a.created_at < ?", where)
        assert.Equal(t, []interface{}{ev, from, to}, args)
    })
}

func TestAndWhere(t *testing.T) {
    assert.Equal(t, " WHERE c.redeemed_count > 0", andWhere("", "c.redeemed_count > 0"))
    assert.Equal(t, " WHERE x = ? AND c.redeemed_count > 0",
        andWhere(" WHERE x = ?", "c.redeemed_count > 0"))
}
