package engine

import (
	"context"
	"errors"
	"time"

	"garagedesk/internal/domain"
	"garagedesk/internal/engine/policy"
	"garagedesk/internal/events"
	"garagedesk/internal/repo"
)

// StaffHireOptions are parameters for adding someone to the roster.
type StaffHireOptions struct {
	ActorID   string
	Ranks     []policy.Rank
	TargetID  string
	Rank      string
	Specialty string
}

// HireStaff adds a member to the roster at the given rank. The acting
// rank must have authority over the target rank.
func (e Engine) HireStaff(ctx context.Context, opts StaffHireOptions) (domain.StaffMember, error) {
	target := policy.ParseRank(opts.Rank)
	if target == policy.RankNone {
		return domain.StaffMember{}, errors.New("unknown rank " + opts.Rank)
	}
	if !policy.CanAppoint(policy.Highest(opts.Ranks), target) {
		return domain.StaffMember{}, policy.ForbiddenManagementError{Action: "hire"}
	}
	if _, err := e.Repo.GetStaff(ctx, opts.TargetID); err == nil {
		return domain.StaffMember{}, errors.New("already on the roster; use promote")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.StaffMember{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	m := domain.StaffMember{
		ActorID:   opts.TargetID,
		Rank:      target.String(),
		Specialty: opts.Specialty,
		HiredBy:   opts.ActorID,
		HiredAt:   now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StaffMember{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertStaff(ctx, tx, m); err != nil {
		return domain.StaffMember{}, err
	}
	if err := e.Events.Append(ctx, tx, "staff.hired", "staff", m.ActorID, opts.ActorID, events.EventPayload{
		"rank": m.Rank,
	}); err != nil {
		return domain.StaffMember{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StaffMember{}, err
	}
	return m, nil
}

// StaffRankOptions are parameters for changing an existing member's rank.
type StaffRankOptions struct {
	ActorID  string
	Ranks    []policy.Rank
	TargetID string
	Rank     string
}

// PromoteStaff moves an existing member to a new rank, up or down. The
// acting rank must have authority over both the current and the new rank.
func (e Engine) PromoteStaff(ctx context.Context, opts StaffRankOptions) (domain.StaffMember, error) {
	target := policy.ParseRank(opts.Rank)
	if target == policy.RankNone {
		return domain.StaffMember{}, errors.New("unknown rank " + opts.Rank)
	}
	m, err := e.Repo.GetStaff(ctx, opts.TargetID)
	if err != nil {
		return domain.StaffMember{}, err
	}
	actor := policy.Highest(opts.Ranks)
	if !policy.CanRemove(actor, policy.ParseRank(m.Rank)) || !policy.CanAppoint(actor, target) {
		return m, policy.ForbiddenManagementError{Action: "promote"}
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return m, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateStaffRank(ctx, tx, m.ActorID, target.String(), now); err != nil {
		return m, err
	}
	if err := e.Events.Append(ctx, tx, "staff.rank_changed", "staff", m.ActorID, opts.ActorID, events.EventPayload{
		"from": m.Rank,
		"to":   target.String(),
	}); err != nil {
		return m, err
	}
	if err := tx.Commit(); err != nil {
		return m, err
	}
	m.Rank = target.String()
	m.UpdatedAt = now
	return m, nil
}

// StaffFireOptions are parameters for removing a member from the roster.
type StaffFireOptions struct {
	ActorID  string
	Ranks    []policy.Rank
	TargetID string
}

// FireStaff removes a member from the roster.
func (e Engine) FireStaff(ctx context.Context, opts StaffFireOptions) error {
	m, err := e.Repo.GetStaff(ctx, opts.TargetID)
	if err != nil {
		return err
	}
	if !policy.CanRemove(policy.Highest(opts.Ranks), policy.ParseRank(m.Rank)) {
		return policy.ForbiddenManagementError{Action: "fire"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteStaff(ctx, tx, m.ActorID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "staff.fired", "staff", m.ActorID, opts.ActorID, events.EventPayload{
		"rank": m.Rank,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// Roster lists the full staff roster.
func (e Engine) Roster(ctx context.Context) ([]domain.StaffMember, error) {
	return e.Repo.ListStaff(ctx)
}
