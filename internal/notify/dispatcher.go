package notify

import (
	"context"
	"fmt"
	"log"

	"garagedesk/internal/domain"
)

// OwnerLister supplies the escalation chain for disputes.
type OwnerLister interface {
	ListStaffByRank(ctx context.Context, rank string) ([]domain.StaffMember, error)
}

// Dispatcher composes and delivers status notifications after committed
// transitions. Delivery is fire-and-forget per recipient: a failed send is
// logged and never unwinds the transition that triggered it.
type Dispatcher struct {
	Gateway Gateway
	Staff   OwnerLister
	Logger  *log.Logger
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.Default()
}

func (d *Dispatcher) send(ctx context.Context, recipientID string, msg Message) {
	if d.Gateway == nil || recipientID == "" {
		return
	}
	if err := d.Gateway.Direct(ctx, recipientID, msg); err != nil {
		d.logger().Printf("notify: direct to %s undeliverable: %v", recipientID, err)
	}
}

var repairStatusText = map[string]string{
	domain.RepairAccepted:   "accepted",
	domain.RepairRejected:   "rejected",
	domain.RepairInProgress: "in progress",
	domain.RepairCompleted:  "completed",
}

// RepairUpdated informs the requester of a committed repair transition.
func (d *Dispatcher) RepairUpdated(ctx context.Context, rep domain.RepairRequest, actorID string) {
	text := repairStatusText[rep.Status]
	if text == "" {
		text = rep.Status
	}
	d.send(ctx, rep.RequesterID, Message{
		Title:    fmt.Sprintf("Update on repair %s", rep.ID),
		Body:     fmt.Sprintf("Your %s repair request is now %s.", rep.Vehicle, text),
		Severity: "info",
		Fields: map[string]string{
			"status":   rep.Status,
			"mechanic": actorID,
			"vehicle":  rep.Vehicle,
		},
	})
}

// InvoiceIssued notifies the payer of a fresh invoice. Unlike the other
// dispatch paths this one reports failure: issuance surfaces a non-fatal
// warning to the issuer when the payer is unreachable.
func (d *Dispatcher) InvoiceIssued(ctx context.Context, inv domain.Invoice) error {
	if d.Gateway == nil {
		return nil
	}
	return d.Gateway.Direct(ctx, inv.PayerID, Message{
		Title:    fmt.Sprintf("New invoice %s", inv.ID),
		Body:     fmt.Sprintf("You have received an invoice of $%d for your %s.", inv.Amount, inv.Vehicle),
		Severity: "info",
		Fields: map[string]string{
			"amount":  fmt.Sprintf("%d", inv.Amount),
			"vehicle": inv.Vehicle,
			"work":    inv.Description,
		},
	})
}

// InvoicePaid informs the issuer that payment arrived.
func (d *Dispatcher) InvoicePaid(ctx context.Context, inv domain.Invoice) {
	d.send(ctx, inv.IssuerID, Message{
		Title:    fmt.Sprintf("Payment received for invoice %s", inv.ID),
		Body:     fmt.Sprintf("Your client settled the $%d invoice for the %s.", inv.Amount, inv.Vehicle),
		Severity: "success",
		Fields: map[string]string{
			"amount":  fmt.Sprintf("%d", inv.Amount),
			"payer":   inv.PayerID,
			"vehicle": inv.Vehicle,
		},
	})
}

// InvoiceDisputed informs the issuer and escalates to every owner with the
// full record detail.
func (d *Dispatcher) InvoiceDisputed(ctx context.Context, inv domain.Invoice) {
	d.send(ctx, inv.IssuerID, Message{
		Title:    fmt.Sprintf("Invoice %s disputed", inv.ID),
		Body:     "A client disputed your invoice. Management will review the situation.",
		Severity: "warning",
		Fields: map[string]string{
			"amount":  fmt.Sprintf("%d", inv.Amount),
			"payer":   inv.PayerID,
			"vehicle": inv.Vehicle,
		},
	})
	if d.Staff == nil {
		return
	}
	owners, err := d.Staff.ListStaffByRank(ctx, "owner")
	if err != nil {
		d.logger().Printf("notify: list owners for escalation: %v", err)
		return
	}
	for _, owner := range owners {
		d.send(ctx, owner.ActorID, Message{
			Title:    fmt.Sprintf("URGENT: invoice %s disputed", inv.ID),
			Body:     "A disputed invoice needs management review.",
			Severity: "urgent",
			Fields: map[string]string{
				"mechanic":    inv.IssuerID,
				"client":      inv.PayerID,
				"vehicle":     inv.Vehicle,
				"work":        inv.Description,
				"amount":      fmt.Sprintf("%d", inv.Amount),
				"issued_at":   inv.CreatedAt,
				"disputed_at": deref(inv.DisputedAt),
			},
		})
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
