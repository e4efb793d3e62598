package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"garagedesk/internal/repo"
)

// Period is a reporting window.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod maps a period name to its Period.
func ParsePeriod(name string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "daily":
		return PeriodDaily, nil
	case "weekly":
		return PeriodWeekly, nil
	case "monthly":
		return PeriodMonthly, nil
	}
	return "", fmt.Errorf("unknown report period %q", name)
}

// Window returns the start of the period ending at now.
func (p Period) Window(now time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return now.AddDate(0, 0, -7)
	case PeriodMonthly:
		return now.AddDate(0, 0, -30)
	default:
		return now.Add(-24 * time.Hour)
	}
}

// Summary is activity over one reporting window.
type Summary struct {
	Period   Period
	Since    string
	Until    string
	Repairs  map[string]int
	Invoices repo.InvoiceTotals
}

// Builder assembles summaries from recorded activity.
type Builder struct {
	Repo repo.Repo
	Now  func() time.Time
}

func (b Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Build summarizes activity for the window ending now.
func (b Builder) Build(ctx context.Context, period Period) (Summary, error) {
	until := b.now().UTC()
	since := period.Window(until)
	s := Summary{
		Period: period,
		Since:  since.Format(time.RFC3339),
		Until:  until.Format(time.RFC3339),
	}
	repairs, err := b.Repo.CountRepairsByStatus(ctx, s.Since)
	if err != nil {
		return s, err
	}
	s.Repairs = repairs
	invoices, err := b.Repo.InvoiceTotalsSince(ctx, s.Since)
	if err != nil {
		return s, err
	}
	s.Invoices = invoices
	return s, nil
}

// RepairCount sums the repair buckets.
func (s Summary) RepairCount() int {
	total := 0
	for _, n := range s.Repairs {
		total += n
	}
	return total
}

// Render formats the summary for an announcement body.
func (s Summary) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Repairs: %d opened or worked", s.RepairCount())
	for _, status := range []string{"pending", "accepted", "in_progress", "completed", "rejected"} {
		if n := s.Repairs[status]; n > 0 {
			fmt.Fprintf(&sb, "\n  %s: %d", status, n)
		}
	}
	fmt.Fprintf(&sb, "\nInvoices: %d issued, %d paid, %d disputed, %d outstanding",
		s.Invoices.Total, s.Invoices.Paid, s.Invoices.Disputed, s.Invoices.Pending)
	fmt.Fprintf(&sb, "\nRevenue collected: %d", s.Invoices.Revenue)
	return sb.String()
}

// Title is the announcement headline for the summary.
func (s Summary) Title() string {
	switch s.Period {
	case PeriodWeekly:
		return "Weekly garage report"
	case PeriodMonthly:
		return "Monthly garage report"
	default:
		return "Daily garage report"
	}
}
