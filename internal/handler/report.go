package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/nightpass/admission/internal/repository"
)

var errBadStamp = errors.New("invalid from/to timestamp, want RFC 3339 or YYYY-MM-DD")

// ReportHandler serves the aggregation dashboards.  All endpoints are
// read-only and filterable by event_id and an inclusive-from,
// exclusive-to date range (RFC 3339 or YYYY-MM-DD).
type ReportHandler struct {
    Reports *repository.ReportRepo
}

func NewReportHandler(r *repository.ReportRepo) *ReportHandler { return &ReportHandler{Reports: r} }

// Admissions reports totals generated versus admitted, split by tier.
func (h *ReportHandler) Admissions(c echo.Context) error {
    f, err := parseFilter(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    rep, err := h.Reports.AdmissionTotals(ctx, f)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "report failed"})
    }
    return c.JSON(http.StatusOK, rep)
}

// StaffPerformance ranks door staff by guests admitted.
func (h *ReportHandler) StaffPerformance(c echo.Context) error {
    f, err := parseFilter(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    out, err := h.Reports.StaffPerformanceReport(ctx, f)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "report failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"staff": out})
}

// AttendanceRanking ranks members by distinct events attended.
func (h *ReportHandler) AttendanceRanking(c echo.Context) error {
    f, err := parseFilter(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    out, err := h.Reports.AttendanceRanking(ctx, f)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "report failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"ranking": out})
}

// FullAttendance lists members who attended every event in the range.
// Both bounds are required; without them "every event" is unbounded.
func (h *ReportHandler) FullAttendance(c echo.Context) error {
    f, err := parseFilter(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    if f.From == nil || f.To == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "from and to required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    rep, err := h.Reports.FullAttendance(ctx, *f.From, *f.To)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "report failed"})
    }
    return c.JSON(http.StatusOK, rep)
}

func parseFilter(c echo.Context) (repository.ReportFilter, error) {
    f := repository.ReportFilter{EventID: queryID(c, "event_id")}
    var err error
    if f.From, err = parseStamp(c.QueryParam("from")); err != nil {
        return f, err
    }
    f.To, err = parseStamp(c.QueryParam("to"))
    return f, err
}

// parseStamp accepts RFC 3339 timestamps or bare dates.
func parseStamp(raw string) (*time.Time, error) {
    if raw == "" {
        return nil, nil
    }
    if t, err := time.Parse(time.RFC3339, raw); err == nil {
        t = t.UTC()
        return &t, nil
    }
    t, err := time.Parse("2006-01-02", raw)
    if err != nil {
        return nil, errBadStamp
    }
    t = t.UTC()
    return &t, nil
}
