package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"garagedesk/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const repairColumns = `id,requester_id,vehicle,problem,tier,status,assigned_to,created_at,last_updated_at,surface,message_id`

func scanRepair(row interface{ Scan(...any) error }) (domain.RepairRequest, error) {
	var r domain.RepairRequest
	var assigned, surface, messageID sql.NullString
	err := row.Scan(&r.ID, &r.RequesterID, &r.Vehicle, &r.Problem, &r.Tier, &r.Status,
		&assigned, &r.CreatedAt, &r.LastUpdatedAt, &surface, &messageID)
	if err == sql.ErrNoRows {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}
	if assigned.Valid {
		r.AssignedTo = &assigned.String
	}
	r.Message = domain.MessageRef{Surface: surface.String, MessageID: messageID.String}
	return r, nil
}

func (r Repo) InsertRepair(ctx context.Context, tx *sql.Tx, req domain.RepairRequest) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO repairs(`+repairColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		req.ID, req.RequesterID, req.Vehicle, req.Problem, req.Tier, req.Status,
		optional(req.AssignedTo), req.CreatedAt, req.LastUpdatedAt,
		nullable(req.Message.Surface), nullable(req.Message.MessageID))
	return err
}

func (r Repo) GetRepair(ctx context.Context, id string) (domain.RepairRequest, error) {
	return scanRepair(r.DB.QueryRowContext(ctx, `SELECT `+repairColumns+` FROM repairs WHERE id=?`, id))
}

func (r Repo) GetRepairTx(ctx context.Context, tx *sql.Tx, id string) (domain.RepairRequest, error) {
	return scanRepair(tx.QueryRowContext(ctx, `SELECT `+repairColumns+` FROM repairs WHERE id=?`, id))
}

// ListRepairs returns repairs, newest first, optionally filtered by status.
func (r Repo) ListRepairs(ctx context.Context, status string) ([]domain.RepairRequest, error) {
	query := `SELECT ` + repairColumns + ` FROM repairs`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RepairRequest
	for rows.Next() {
		req, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, req)
	}
	return res, rows.Err()
}

// TransitionRepair moves a repair from one status to another with a
// compare-and-swap on the previously observed status. It reports whether
// the swap matched; false means another transition committed first.
func (r Repo) TransitionRepair(ctx context.Context, tx *sql.Tx, id, fromStatus, toStatus string, assignedTo *string, updatedAt string) (bool, error) {
	var res sql.Result
	var err error
	if assignedTo != nil {
		res, err = tx.ExecContext(ctx,
			`UPDATE repairs SET status=?, assigned_to=?, last_updated_at=? WHERE id=? AND status=?`,
			toStatus, *assignedTo, updatedAt, id, fromStatus)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE repairs SET status=?, last_updated_at=? WHERE id=? AND status=?`,
			toStatus, updatedAt, id, fromStatus)
	}
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// SetRepairMessage records where the rendered artifact currently lives.
// Called after a surface relocation; deliberately outside the transition
// transaction since the relocation itself happens post-commit.
func (r Repo) SetRepairMessage(ctx context.Context, id string, ref domain.MessageRef) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE repairs SET surface=?, message_id=? WHERE id=?`,
		nullable(ref.Surface), nullable(ref.MessageID), id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

const invoiceColumns = `id,issuer_id,payer_id,vehicle,description,amount,status,created_at,paid_at,disputed_at,resolved_by,surface,message_id`

func scanInvoice(row interface{ Scan(...any) error }) (domain.Invoice, error) {
	var inv domain.Invoice
	var paidAt, disputedAt, resolvedBy, surface, messageID sql.NullString
	err := row.Scan(&inv.ID, &inv.IssuerID, &inv.PayerID, &inv.Vehicle, &inv.Description,
		&inv.Amount, &inv.Status, &inv.CreatedAt, &paidAt, &disputedAt, &resolvedBy, &surface, &messageID)
	if err == sql.ErrNoRows {
		return inv, ErrNotFound
	}
	if err != nil {
		return inv, err
	}
	if paidAt.Valid {
		inv.PaidAt = &paidAt.String
	}
	if disputedAt.Valid {
		inv.DisputedAt = &disputedAt.String
	}
	if resolvedBy.Valid {
		inv.ResolvedBy = &resolvedBy.String
	}
	inv.Message = domain.MessageRef{Surface: surface.String, MessageID: messageID.String}
	return inv, nil
}

func (r Repo) InsertInvoice(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO invoices(`+invoiceColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		inv.ID, inv.IssuerID, inv.PayerID, inv.Vehicle, inv.Description, inv.Amount, inv.Status,
		inv.CreatedAt, optional(inv.PaidAt), optional(inv.DisputedAt), optional(inv.ResolvedBy),
		nullable(inv.Message.Surface), nullable(inv.Message.MessageID))
	return err
}

func (r Repo) GetInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	return scanInvoice(r.DB.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=?`, id))
}

func (r Repo) ListInvoices(ctx context.Context, status string) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, inv)
	}
	return res, rows.Err()
}

// ResolveInvoice moves a pending invoice to paid or disputed, stamping the
// matching timestamp column exactly once. Compare-and-swap on pending:
// false means the invoice already left pending.
func (r Repo) ResolveInvoice(ctx context.Context, tx *sql.Tx, id, toStatus, at, resolvedBy string) (bool, error) {
	column := "paid_at"
	if toStatus == domain.InvoiceDisputed {
		column = "disputed_at"
	}
	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE invoices SET status=?, %s=?, resolved_by=? WHERE id=? AND status=?`, column),
		toStatus, at, resolvedBy, id, domain.InvoicePending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r Repo) SetInvoiceMessage(ctx context.Context, id string, ref domain.MessageRef) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE invoices SET surface=?, message_id=? WHERE id=?`,
		nullable(ref.Surface), nullable(ref.MessageID), id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountInvoices(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&n)
	return n, err
}

// ListEvents returns the newest events first, up to limit.
func (r Repo) ListEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventsAfter returns up to limit events with id greater than cursor, oldest first.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM events`).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id.Int64, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func optional(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
