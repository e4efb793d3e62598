package repo

import (
	"context"
	"database/sql"

	"garagedesk/internal/domain"
)

func scanStaff(row interface{ Scan(...any) error }) (domain.StaffMember, error) {
	var m domain.StaffMember
	var specialty sql.NullString
	err := row.Scan(&m.ActorID, &m.Rank, &specialty, &m.HiredBy, &m.HiredAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if specialty.Valid {
		m.Specialty = specialty.String
	}
	return m, err
}

func (r Repo) InsertStaff(ctx context.Context, tx *sql.Tx, m domain.StaffMember) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO staff(actor_id,rank,specialty,hired_by,hired_at,updated_at) VALUES (?,?,?,?,?,?)`,
		m.ActorID, m.Rank, nullable(m.Specialty), m.HiredBy, m.HiredAt, m.UpdatedAt)
	return err
}

func (r Repo) GetStaff(ctx context.Context, actorID string) (domain.StaffMember, error) {
	return scanStaff(r.DB.QueryRowContext(ctx,
		`SELECT actor_id,rank,specialty,hired_by,hired_at,updated_at FROM staff WHERE actor_id=?`, actorID))
}

func (r Repo) UpdateStaffRank(ctx context.Context, tx *sql.Tx, actorID, rank, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE staff SET rank=?, updated_at=? WHERE actor_id=?`, rank, updatedAt, actorID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteStaff(ctx context.Context, tx *sql.Tx, actorID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM staff WHERE actor_id=?`, actorID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStaff returns the roster ordered by hire date.
func (r Repo) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT actor_id,rank,specialty,hired_by,hired_at,updated_at FROM staff ORDER BY hired_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StaffMember
	for rows.Next() {
		m, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// ListStaffByRank returns every staff member holding the given rank.
// Used for owner escalation on invoice disputes.
func (r Repo) ListStaffByRank(ctx context.Context, rank string) ([]domain.StaffMember, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT actor_id,rank,specialty,hired_by,hired_at,updated_at FROM staff WHERE rank=?`, rank)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StaffMember
	for rows.Next() {
		m, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
