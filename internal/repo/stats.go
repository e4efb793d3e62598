package repo

import (
	"context"
)

// InvoiceTotals aggregates invoices created at or after the since timestamp
// (RFC3339; empty means all time).
type InvoiceTotals struct {
	Total    int
	Paid     int
	Disputed int
	Pending  int
	Revenue  int64
}

func (r Repo) InvoiceTotalsSince(ctx context.Context, since string) (InvoiceTotals, error) {
	var t InvoiceTotals
	query := `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status='paid' THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN status='disputed' THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN status='pending' THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN status='paid' THEN amount ELSE 0 END),0)
	FROM invoices`
	var args []any
	if since != "" {
		query += ` WHERE created_at >= ?`
		args = append(args, since)
	}
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&t.Total, &t.Paid, &t.Disputed, &t.Pending, &t.Revenue)
	return t, err
}

// CountRepairsByStatus buckets repairs created at or after since.
func (r Repo) CountRepairsByStatus(ctx context.Context, since string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM repairs`
	var args []any
	if since != "" {
		query += ` WHERE created_at >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// MechanicStats summarizes one mechanic's activity.
type MechanicStats struct {
	ActorID          string
	RepairsAssigned  int
	RepairsCompleted int
	InvoicesIssued   int
	InvoicesPaid     int
	Revenue          int64
}

func (r Repo) StatsForMechanic(ctx context.Context, actorID string) (MechanicStats, error) {
	s := MechanicStats{ActorID: actorID}
	err := r.DB.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status='completed' THEN 1 ELSE 0 END),0)
	FROM repairs WHERE assigned_to=?`, actorID).Scan(&s.RepairsAssigned, &s.RepairsCompleted)
	if err != nil {
		return s, err
	}
	err = r.DB.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status='paid' THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN status='paid' THEN amount ELSE 0 END),0)
	FROM invoices WHERE issuer_id=?`, actorID).Scan(&s.InvoicesIssued, &s.InvoicesPaid, &s.Revenue)
	return s, err
}
