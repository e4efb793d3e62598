package notify

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"garagedesk/internal/domain"
)

// LogGateway renders to the process log. It stands in for a real chat
// platform during CLI use and local development; message ids are simple
// monotonic counters.
type LogGateway struct {
	Logger *log.Logger
	seq    atomic.Int64
}

func (g *LogGateway) logger() *log.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return log.Default()
}

func (g *LogGateway) nextID() string {
	return fmt.Sprintf("msg-%d", g.seq.Add(1))
}

func describe(view View) string {
	switch view.Kind {
	case "repair":
		if view.Repair != nil {
			return fmt.Sprintf("repair %s [%s] %s", view.Repair.ID, view.Repair.Status, view.Repair.Vehicle)
		}
	case "invoice":
		if view.Invoice != nil {
			return fmt.Sprintf("invoice %s [%s] $%d", view.Invoice.ID, view.Invoice.Status, view.Invoice.Amount)
		}
	}
	return view.Kind
}

func (g *LogGateway) Publish(ctx context.Context, surface string, view View) (domain.MessageRef, error) {
	ref := domain.MessageRef{Surface: surface, MessageID: g.nextID()}
	g.logger().Printf("gateway: publish %s on %s as %s actions=%v", describe(view), surface, ref.MessageID, view.Actions)
	return ref, nil
}

func (g *LogGateway) Update(ctx context.Context, ref domain.MessageRef, view View) error {
	g.logger().Printf("gateway: update %s on %s (%s) actions=%v", describe(view), ref.Surface, ref.MessageID, view.Actions)
	return nil
}

func (g *LogGateway) Relocate(ctx context.Context, from domain.MessageRef, surface string, view View) (domain.MessageRef, error) {
	ref := domain.MessageRef{Surface: surface, MessageID: g.nextID()}
	g.logger().Printf("gateway: relocate %s from %s to %s as %s", describe(view), from.Surface, surface, ref.MessageID)
	return ref, nil
}

func (g *LogGateway) Direct(ctx context.Context, recipientID string, msg Message) error {
	g.logger().Printf("gateway: direct to %s [%s] %s", recipientID, msg.Severity, msg.Title)
	return nil
}

func (g *LogGateway) Announce(ctx context.Context, surface string, msg Message) error {
	g.logger().Printf("gateway: announce on %s [%s] %s", surface, msg.Severity, msg.Title)
	return nil
}
