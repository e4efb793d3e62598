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

// AnnounceOptions describe a staff broadcast.
type AnnounceOptions struct {
	ActorID string
	Ranks   []policy.Rank
	Title   string
	Body    string
	Kind    string
}

// announceSeverity maps announcement kinds onto message severities the
// gateway understands. Important announcements go out urgent.
var announceSeverity = map[string]string{
	domain.AnnouncementGeneral:     "info",
	domain.AnnouncementEvent:       "info",
	domain.AnnouncementMaintenance: "warning",
	domain.AnnouncementPromo:       "success",
	domain.AnnouncementImportant:   "urgent",
}

// Announce posts a typed broadcast on the announcements surface. Mechanics
// and above may announce; the text passes moderation before anything goes
// out, and the posting is recorded in the event log.
func (e Engine) Announce(ctx context.Context, opts AnnounceOptions) (domain.Announcement, error) {
	if opts.ActorID == "" {
		return domain.Announcement{}, errors.New("actor is required")
	}
	if opts.Body == "" {
		return domain.Announcement{}, errors.New("announcement body is required")
	}
	if !policy.CanAnnounce(opts.Ranks) {
		return domain.Announcement{}, policy.ForbiddenManagementError{Action: "announce"}
	}
	if opts.Kind == "" {
		opts.Kind = domain.AnnouncementGeneral
	}
	severity, ok := announceSeverity[opts.Kind]
	if !ok {
		return domain.Announcement{}, errors.New("unknown announcement kind " + opts.Kind)
	}
	if opts.Title == "" {
		opts.Title = "Garage announcement"
	}
	if e.Mod != nil {
		if v := e.Mod.Check(opts.ActorID, opts.Title+" "+opts.Body); !v.Allowed {
			return domain.Announcement{}, MessageRejectedError{Reason: v.Reason, Word: v.Word}
		}
	}
	ann := domain.Announcement{
		ID:       e.newRecordID("ANN"),
		ActorID:  opts.ActorID,
		Kind:     opts.Kind,
		Title:    opts.Title,
		Body:     opts.Body,
		Surface:  e.surface(domain.SurfaceAnnouncements),
		PostedAt: e.now().UTC().Format(time.RFC3339),
	}
	if e.Notify == nil || e.Notify.Gateway == nil {
		return domain.Announcement{}, errors.New("no gateway configured for announcements")
	}
	if err := e.Notify.Gateway.Announce(ctx, ann.Surface, notify.Message{
		Title:    ann.Title,
		Body:     ann.Body,
		Severity: severity,
		Fields:   map[string]string{"kind": ann.Kind, "by": ann.ActorID},
	}); err != nil {
		return domain.Announcement{}, err
	}
	// The broadcast is already out; a failed event write is logged, not
	// returned.
	if err := e.appendAnnouncementEvent(ctx, ann); err != nil {
		e.logger().Printf("engine: record announcement %s: %v", ann.ID, err)
	}
	return ann, nil
}

func (e Engine) appendAnnouncementEvent(ctx context.Context, ann domain.Announcement) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "announcement.posted", "announcement", ann.ID, ann.ActorID, events.EventPayload{
		"kind":    ann.Kind,
		"title":   ann.Title,
		"surface": ann.Surface,
	}); err != nil {
		return err
	}
	return tx.Commit()
}
