package engine

import (
	"context"
	"errors"
	"time"

	"garagedesk/internal/domain"
	"garagedesk/internal/engine/policy"
	"garagedesk/internal/events"
	"garagedesk/internal/notify"
)

// RepairCreateOptions are parameters for filing a repair request.
type RepairCreateOptions struct {
	RequesterID string
	Vehicle     string
	Problem     string
	Tier        string
}

// CreateRepair files a new repair request. Anyone may file one; there is
// no authorization gate on creation.
func (e Engine) CreateRepair(ctx context.Context, opts RepairCreateOptions) (domain.RepairRequest, error) {
	if opts.RequesterID == "" {
		return domain.RepairRequest{}, errors.New("requester is required")
	}
	if opts.Vehicle == "" {
		return domain.RepairRequest{}, errors.New("vehicle is required")
	}
	if opts.Problem == "" {
		return domain.RepairRequest{}, errors.New("problem description is required")
	}
	if opts.Tier == "" {
		opts.Tier = policy.TierMedium
	}
	if !policy.ValidTier(opts.Tier) {
		return domain.RepairRequest{}, errors.New("unknown complexity tier " + opts.Tier)
	}
	now := e.now().UTC().Format(time.RFC3339)
	rec := domain.RepairRequest{
		ID:            e.newRecordID("REP"),
		RequesterID:   opts.RequesterID,
		Vehicle:       opts.Vehicle,
		Problem:       opts.Problem,
		Tier:          opts.Tier,
		Status:        domain.RepairPending,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RepairRequest{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertRepair(ctx, tx, rec); err != nil {
		return domain.RepairRequest{}, err
	}
	if err := e.Events.Append(ctx, tx, "repair.created", "repair", rec.ID, opts.RequesterID, events.EventPayload{
		"tier":    rec.Tier,
		"vehicle": rec.Vehicle,
	}); err != nil {
		return domain.RepairRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RepairRequest{}, err
	}
	e.renderRepair(ctx, &rec, domain.SurfaceIntake, false)
	return rec, nil
}

// RepairTransitionOptions identify an action event from the gateway.
type RepairTransitionOptions struct {
	RepairID string
	ActorID  string
	Ranks    []policy.Rank
	Action   string
}

// repairTarget maps an action to the status it produces.
func repairTarget(action string) (string, bool) {
	switch action {
	case domain.ActionAccept:
		return domain.RepairAccepted, true
	case domain.ActionReject:
		return domain.RepairRejected, true
	case domain.ActionProgress:
		return domain.RepairInProgress, true
	case domain.ActionComplete:
		return domain.RepairCompleted, true
	}
	return "", false
}

// ensureRepairTransition enforces the lifecycle edges: pending may be
// accepted, rejected, or moved straight to in_progress; accepted and
// in_progress may be completed. Everything else is invalid, including
// repeating an action on a terminal record.
func ensureRepairTransition(status, action string) bool {
	switch action {
	case domain.ActionAccept, domain.ActionReject, domain.ActionProgress:
		return status == domain.RepairPending
	case domain.ActionComplete:
		return status == domain.RepairAccepted || status == domain.RepairInProgress
	}
	return false
}

// TransitionRepair applies a staff action to a repair. The complexity gate
// applies to every action; head mechanic and owner bypass it. The status
// swap is a compare-and-swap on the observed status, so two racing actions
// on one record resolve to exactly one winner.
func (e Engine) TransitionRepair(ctx context.Context, opts RepairTransitionOptions) (domain.RepairRequest, error) {
	rec, err := e.Repo.GetRepair(ctx, opts.RepairID)
	if err != nil {
		return domain.RepairRequest{}, err
	}
	target, ok := repairTarget(opts.Action)
	if !ok {
		return rec, errors.New("unknown repair action " + opts.Action)
	}
	if !policy.CanHandle(opts.Ranks, rec.Tier) {
		return rec, policy.ForbiddenError{Tier: rec.Tier}
	}
	if !ensureRepairTransition(rec.Status, opts.Action) {
		return rec, InvalidTransitionError{Kind: "repair", ID: rec.ID, From: rec.Status, Action: opts.Action}
	}
	now := e.now().UTC().Format(time.RFC3339)
	var assigned *string
	if opts.Action == domain.ActionAccept || opts.Action == domain.ActionProgress {
		assigned = &opts.ActorID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return rec, err
	}
	defer tx.Rollback()
	swapped, err := e.Repo.TransitionRepair(ctx, tx, rec.ID, rec.Status, target, assigned, now)
	if err != nil {
		return rec, err
	}
	if !swapped {
		// A concurrent transition won the race; release the write
		// connection, then report against the status that committed.
		tx.Rollback()
		current, gerr := e.Repo.GetRepair(ctx, rec.ID)
		if gerr != nil {
			return rec, gerr
		}
		return current, InvalidTransitionError{Kind: "repair", ID: rec.ID, From: current.Status, Action: opts.Action}
	}
	if err := e.Events.Append(ctx, tx, "repair."+opts.Action, "repair", rec.ID, opts.ActorID, events.EventPayload{
		"from": rec.Status,
		"to":   target,
	}); err != nil {
		return rec, err
	}
	if err := tx.Commit(); err != nil {
		return rec, err
	}
	rec.Status = target
	rec.LastUpdatedAt = now
	if assigned != nil {
		rec.AssignedTo = assigned
	}
	switch opts.Action {
	case domain.ActionReject:
		e.renderRepair(ctx, &rec, "", true)
	case domain.ActionAccept, domain.ActionProgress:
		e.renderRepair(ctx, &rec, domain.SurfaceInProgress, false)
	case domain.ActionComplete:
		e.renderRepair(ctx, &rec, domain.SurfaceCompleted, false)
	}
	e.Notify.RepairUpdated(ctx, rec, opts.ActorID)
	return rec, nil
}

// renderRepair publishes, relocates, or updates the rendered artifact and
// records its new location. Rendering happens strictly after commit; a
// gateway failure is logged and never unwinds the transition.
func (e Engine) renderRepair(ctx context.Context, rec *domain.RepairRequest, canonicalSurface string, inPlace bool) {
	if e.Notify == nil || e.Notify.Gateway == nil {
		return
	}
	view := notify.RepairView(*rec)
	if inPlace {
		if err := e.Notify.Gateway.Update(ctx, rec.Message, view); err != nil {
			e.logger().Printf("engine: update render of repair %s: %v", rec.ID, err)
		}
		return
	}
	surface := e.surface(canonicalSurface)
	var ref domain.MessageRef
	var err error
	if rec.Message.MessageID == "" {
		ref, err = e.Notify.Gateway.Publish(ctx, surface, view)
	} else {
		ref, err = e.Notify.Gateway.Relocate(ctx, rec.Message, surface, view)
	}
	if err != nil {
		e.logger().Printf("engine: render repair %s on %s: %v", rec.ID, surface, err)
		return
	}
	rec.Message = ref
	if err := e.Repo.SetRepairMessage(ctx, rec.ID, ref); err != nil {
		e.logger().Printf("engine: record message ref for repair %s: %v", rec.ID, err)
	}
}
