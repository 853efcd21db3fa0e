package dashboard

import (
	"time"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

type ChartPoint struct {
	Label     string `json:"label"` // bucket start, YYYY-MM-DD
	Spent     int64  `json:"spent"`
	Disbursed int64  `json:"disbursed"`
}

type ChartTotals struct {
	Spent     int64 `json:"spent"`
	Disbursed int64 `json:"disbursed"`
}

type SpendingChartResponse struct {
	ProjectID   string       `json:"projectId,omitempty"`
	Period      Period       `json:"period"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Points      []ChartPoint `json:"points"`
	GrandTotals ChartTotals  `json:"grandTotals"`
}

// Dated is one ledger amount on the day it happened.
type Dated struct {
	Date   time.Time
	Amount int64
}

func defaultCount(p Period) int {
	switch p {
	case PeriodWeekly:
		return 8
	case PeriodMonthly:
		return 12
	default:
		return 7
	}
}

// bucketStart truncates t to the start of its day, ISO week or month.
func bucketStart(t time.Time, p Period) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case PeriodWeekly:
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		return d.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

func nextBucket(t time.Time, p Period) time.Time {
	switch p {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Window returns the first bucket start and the exclusive end of the
// count buckets ending with the one containing now.
func Window(now time.Time, p Period, count int) (start, end time.Time) {
	last := bucketStart(now, p)
	start = last
	for i := 1; i < count; i++ {
		switch p {
		case PeriodWeekly:
			start = start.AddDate(0, 0, -7)
		case PeriodMonthly:
			start = start.AddDate(0, -1, 0)
		default:
			start = start.AddDate(0, 0, -1)
		}
	}
	return start, nextBucket(last, p)
}

// Series lays spent and disbursed amounts onto consecutive buckets in
// [start, end). Empty buckets are kept so the chart has no gaps.
func Series(start, end time.Time, p Period, spent, disbursed []Dated) ([]ChartPoint, ChartTotals) {
	index := map[time.Time]int{}
	var points []ChartPoint
	for b := start; b.Before(end); b = nextBucket(b, p) {
		index[b] = len(points)
		points = append(points, ChartPoint{Label: b.Format("2006-01-02")})
	}

	var totals ChartTotals
	for _, d := range spent {
		if i, ok := index[bucketStart(d.Date, p)]; ok {
			points[i].Spent += d.Amount
			totals.Spent += d.Amount
		}
	}
	for _, d := range disbursed {
		if i, ok := index[bucketStart(d.Date, p)]; ok {
			points[i].Disbursed += d.Amount
			totals.Disbursed += d.Amount
		}
	}
	if points == nil {
		points = []ChartPoint{}
	}
	return points, totals
}

// GET /api/dashboard/spending-chart?period=weekly&count=8&projectId=...
func SpendingChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := Period(c.Query("period", string(PeriodDaily)))
		switch period {
		case PeriodDaily, PeriodWeekly, PeriodMonthly:
		default:
			return apperr.Invalid("period", "must be daily, weekly or monthly")
		}

		count := c.QueryInt("count", defaultCount(period))
		if count <= 0 || count > 366 {
			return apperr.Invalid("count", "must be between 1 and 366")
		}
		projectID := c.Query("projectId")

		start, end := Window(time.Now().UTC(), period, count)

		db := database.DB.WithContext(c.UserContext())
		var spent, disbursed []Dated

		q := db.Model(&models.Expenditure{}).
			Select("expenditure_date AS date, amount").
			Where("expenditure_date >= ? AND expenditure_date < ?", start, end)
		if projectID != "" {
			q = q.Where("project_id = ?", projectID)
		}
		if err := q.Scan(&spent).Error; err != nil {
			return apperr.Store("loading expenditures", err)
		}

		q = db.Model(&models.DisbursementLog{}).
			Select("disbursed_at AS date, amount").
			Where("disbursed_at >= ? AND disbursed_at < ?", start, end)
		if projectID != "" {
			q = q.Where("project_id = ?", projectID)
		}
		if err := q.Scan(&disbursed).Error; err != nil {
			return apperr.Store("loading disbursements", err)
		}

		points, totals := Series(start, end, period, spent, disbursed)
		return c.JSON(SpendingChartResponse{
			ProjectID:   projectID,
			Period:      period,
			From:        start.Format("2006-01-02"),
			To:          end.AddDate(0, 0, -1).Format("2006-01-02"),
			Points:      points,
			GrandTotals: totals,
		})
	}
}
