package notify

import (
	"context"

	"garagedesk/internal/domain"
)

// View is what the presentation gateway renders: one record plus the
// action affordances valid for its current status.
type View struct {
	Kind    string // "repair" or "invoice"
	Repair  *domain.RepairRequest
	Invoice *domain.Invoice
	Actions []string
}

// Message is a direct notification to a single recipient.
type Message struct {
	Title    string
	Body     string
	Severity string // info, success, warning, urgent
	Fields   map[string]string
}

// Gateway is the presentation collaborator. Implementations render records
// on named surfaces and deliver direct messages; the core never depends on
// any particular chat platform.
type Gateway interface {
	// Publish renders a view on a surface and returns where it landed.
	Publish(ctx context.Context, surface string, view View) (domain.MessageRef, error)
	// Update re-renders an existing artifact in place.
	Update(ctx context.Context, ref domain.MessageRef, view View) error
	// Relocate moves an artifact to another surface, removing the old one.
	Relocate(ctx context.Context, from domain.MessageRef, surface string, view View) (domain.MessageRef, error)
	// Direct delivers a message to one recipient. May fail if the
	// recipient refuses direct delivery; callers treat that as non-fatal.
	Direct(ctx context.Context, recipientID string, msg Message) error
	// Announce posts a standalone message on a surface, such as a
	// scheduled report or a moderation notice.
	Announce(ctx context.Context, surface string, msg Message) error
}

// RepairView builds the view for a repair in its current status.
func RepairView(rep domain.RepairRequest) View {
	return View{Kind: "repair", Repair: &rep, Actions: RepairActions(rep.Status)}
}

// InvoiceView builds the view for an invoice in its current status.
func InvoiceView(inv domain.Invoice) View {
	return View{Kind: "invoice", Invoice: &inv, Actions: InvoiceActions(inv.Status)}
}

// RepairActions returns the affordance set for a repair status. The set is
// a pure function of status so re-rendering without a transition always
// yields the same affordances.
func RepairActions(status string) []string {
	switch status {
	case domain.RepairPending:
		return []string{domain.ActionAccept, domain.ActionReject, domain.ActionProgress, domain.ActionComplete}
	case domain.RepairAccepted, domain.RepairInProgress:
		return []string{domain.ActionComplete}
	}
	return nil
}

// InvoiceActions returns the affordance set for an invoice status. Paid and
// disputed both strip every affordance; the record is read-only from there.
func InvoiceActions(status string) []string {
	if status == domain.InvoicePending {
		return []string{"pay", "dispute"}
	}
	return nil
}
