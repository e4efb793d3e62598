package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"garagedesk/internal/domain"
	"garagedesk/internal/events"
	"garagedesk/internal/notify"
)

// InvoiceIssueOptions are parameters for issuing an invoice.
type InvoiceIssueOptions struct {
	IssuerID    string
	PayerID     string
	Vehicle     string
	Description string
	Amount      int64
}

// IssueInvoice creates a pending invoice and notifies the payer. The
// returned warnings are non-fatal conditions the issuer should see, such
// as the payer being unreachable by direct message.
func (e Engine) IssueInvoice(ctx context.Context, opts InvoiceIssueOptions) (domain.Invoice, []string, error) {
	if opts.Amount <= 0 {
		return domain.Invoice{}, nil, InvalidAmountError{Amount: opts.Amount}
	}
	if opts.IssuerID == "" || opts.PayerID == "" {
		return domain.Invoice{}, nil, errors.New("issuer and payer are required")
	}
	if opts.Vehicle == "" || opts.Description == "" {
		return domain.Invoice{}, nil, errors.New("vehicle and description are required")
	}
	now := e.now().UTC().Format(time.RFC3339)
	inv := domain.Invoice{
		ID:          e.newRecordID("INV"),
		IssuerID:    opts.IssuerID,
		PayerID:     opts.PayerID,
		Vehicle:     opts.Vehicle,
		Description: opts.Description,
		Amount:      opts.Amount,
		Status:      domain.InvoicePending,
		CreatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Invoice{}, nil, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertInvoice(ctx, tx, inv); err != nil {
		return domain.Invoice{}, nil, err
	}
	if err := e.Events.Append(ctx, tx, "invoice.issued", "invoice", inv.ID, opts.IssuerID, events.EventPayload{
		"payer":  inv.PayerID,
		"amount": inv.Amount,
	}); err != nil {
		return domain.Invoice{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Invoice{}, nil, err
	}
	e.renderInvoice(ctx, &inv)
	var warnings []string
	if err := e.Notify.InvoiceIssued(ctx, inv); err != nil {
		e.logger().Printf("engine: payer notification for invoice %s undeliverable: %v", inv.ID, err)
		warnings = append(warnings, fmt.Sprintf("could not reach %s directly; the invoice was still issued", inv.PayerID))
	}
	return inv, warnings, nil
}

// resolveInvoice is the shared pay/dispute path: payer-only, pending-only,
// compare-and-swap on pending.
func (e Engine) resolveInvoice(ctx context.Context, id, actorID, toStatus string) (domain.Invoice, error) {
	inv, err := e.Repo.GetInvoice(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if actorID != inv.PayerID {
		return inv, NotPayerError{InvoiceID: inv.ID}
	}
	action := "pay"
	if toStatus == domain.InvoiceDisputed {
		action = "dispute"
	}
	if inv.Status != domain.InvoicePending {
		return inv, InvalidTransitionError{Kind: "invoice", ID: inv.ID, From: inv.Status, Action: action}
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return inv, err
	}
	defer tx.Rollback()
	swapped, err := e.Repo.ResolveInvoice(ctx, tx, inv.ID, toStatus, now, actorID)
	if err != nil {
		return inv, err
	}
	if !swapped {
		tx.Rollback()
		current, gerr := e.Repo.GetInvoice(ctx, inv.ID)
		if gerr != nil {
			return inv, gerr
		}
		return current, InvalidTransitionError{Kind: "invoice", ID: inv.ID, From: current.Status, Action: action}
	}
	if err := e.Events.Append(ctx, tx, "invoice."+action, "invoice", inv.ID, actorID, events.EventPayload{
		"amount": inv.Amount,
	}); err != nil {
		return inv, err
	}
	if err := tx.Commit(); err != nil {
		return inv, err
	}
	inv.Status = toStatus
	inv.ResolvedBy = &actorID
	if toStatus == domain.InvoicePaid {
		inv.PaidAt = &now
	} else {
		inv.DisputedAt = &now
	}
	return inv, nil
}

// PayInvoice marks a pending invoice paid, strips its affordances, and
// notifies the issuing mechanic.
func (e Engine) PayInvoice(ctx context.Context, id, actorID string) (domain.Invoice, error) {
	inv, err := e.resolveInvoice(ctx, id, actorID, domain.InvoicePaid)
	if err != nil {
		return inv, err
	}
	e.updateInvoiceRender(ctx, inv)
	e.Notify.InvoicePaid(ctx, inv)
	return inv, nil
}

// DisputeInvoice marks a pending invoice disputed, strips its affordances,
// moves the rendered artifact to the disputes surface, notifies the issuer,
// and escalates to every owner.
func (e Engine) DisputeInvoice(ctx context.Context, id, actorID string) (domain.Invoice, error) {
	inv, err := e.resolveInvoice(ctx, id, actorID, domain.InvoiceDisputed)
	if err != nil {
		return inv, err
	}
	e.relocateInvoiceRender(ctx, &inv, domain.SurfaceDisputed)
	e.Notify.InvoiceDisputed(ctx, inv)
	return inv, nil
}

func (e Engine) renderInvoice(ctx context.Context, inv *domain.Invoice) {
	if e.Notify == nil || e.Notify.Gateway == nil {
		return
	}
	surface := e.surface(domain.SurfaceIntake)
	ref, err := e.Notify.Gateway.Publish(ctx, surface, notify.InvoiceView(*inv))
	if err != nil {
		e.logger().Printf("engine: render invoice %s on %s: %v", inv.ID, surface, err)
		return
	}
	inv.Message = ref
	if err := e.Repo.SetInvoiceMessage(ctx, inv.ID, ref); err != nil {
		e.logger().Printf("engine: record message ref for invoice %s: %v", inv.ID, err)
	}
}

func (e Engine) updateInvoiceRender(ctx context.Context, inv domain.Invoice) {
	if e.Notify == nil || e.Notify.Gateway == nil {
		return
	}
	if err := e.Notify.Gateway.Update(ctx, inv.Message, notify.InvoiceView(inv)); err != nil {
		e.logger().Printf("engine: update render of invoice %s: %v", inv.ID, err)
	}
}

// relocateInvoiceRender moves the rendered invoice to another surface and
// records its new location, so disputed invoices collect in one place.
func (e Engine) relocateInvoiceRender(ctx context.Context, inv *domain.Invoice, canonicalSurface string) {
	if e.Notify == nil || e.Notify.Gateway == nil {
		return
	}
	surface := e.surface(canonicalSurface)
	view := notify.InvoiceView(*inv)
	var ref domain.MessageRef
	var err error
	if inv.Message.MessageID == "" {
		ref, err = e.Notify.Gateway.Publish(ctx, surface, view)
	} else {
		ref, err = e.Notify.Gateway.Relocate(ctx, inv.Message, surface, view)
	}
	if err != nil {
		e.logger().Printf("engine: render invoice %s on %s: %v", inv.ID, surface, err)
		return
	}
	inv.Message = ref
	if err := e.Repo.SetInvoiceMessage(ctx, inv.ID, ref); err != nil {
		e.logger().Printf("engine: record message ref for invoice %s: %v", inv.ID, err)
	}
}
