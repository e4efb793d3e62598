package domain

// MessageRef locates the rendered artifact for a record on the
// presentation gateway: a named surface plus the gateway's message id.
type MessageRef struct {
	Surface   string `json:"surface,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

type RepairRequest struct {
	ID            string  `json:"id"`
	RequesterID   string  `json:"requester_id"`
	Vehicle       string  `json:"vehicle"`
	Problem       string  `json:"problem"`
	Tier          string  `json:"tier" enum:"simple,medium,complex,very_complex"`
	Status        string  `json:"status" enum:"pending,accepted,rejected,in_progress,completed"`
	AssignedTo    *string `json:"assigned_to,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	LastUpdatedAt string  `json:"last_updated_at" format:"date-time"`
	Message       MessageRef
}

type Invoice struct {
	ID          string  `json:"id"`
	IssuerID    string  `json:"issuer_id"`
	PayerID     string  `json:"payer_id"`
	Vehicle     string  `json:"vehicle"`
	Description string  `json:"description"`
	Amount      int64   `json:"amount"`
	Status      string  `json:"status" enum:"pending,paid,disputed"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	PaidAt      *string `json:"paid_at,omitempty" format:"date-time"`
	DisputedAt  *string `json:"disputed_at,omitempty" format:"date-time"`
	ResolvedBy  *string `json:"resolved_by,omitempty"`
	Message     MessageRef
}

type StaffMember struct {
	ActorID   string `json:"actor_id"`
	Rank      string `json:"rank" enum:"trainee,junior,mechanic,senior,head,owner"`
	Specialty string `json:"specialty,omitempty"`
	HiredBy   string `json:"hired_by"`
	HiredAt   string `json:"hired_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// Announcement is a staff broadcast posted to the announcements surface.
// It lives only in the event log; there is no announcements table.
type Announcement struct {
	ID       string `json:"id"`
	ActorID  string `json:"actor_id"`
	Kind     string `json:"kind" enum:"general,event,maintenance,promo,important"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Surface  string `json:"surface"`
	PostedAt string `json:"posted_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIKey authenticates a caller as ActorID. CreatedBy records who minted
// the key, which for garage staff is usually the owner doing onboarding.
type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Label     string `json:"label,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Repair statuses.
const (
	RepairPending    = "pending"
	RepairAccepted   = "accepted"
	RepairRejected   = "rejected"
	RepairInProgress = "in_progress"
	RepairCompleted  = "completed"
)

// Invoice statuses.
const (
	InvoicePending  = "pending"
	InvoicePaid     = "paid"
	InvoiceDisputed = "disputed"
)

// Repair actions accepted from the gateway.
const (
	ActionAccept   = "accept"
	ActionReject   = "reject"
	ActionProgress = "progress"
	ActionComplete = "complete"
)

// Surfaces the gateway renders records to.
const (
	SurfaceIntake        = "intake"
	SurfaceInProgress    = "in_progress"
	SurfaceCompleted     = "completed"
	SurfaceDisputed      = "disputed"
	SurfaceAnnouncements = "announcements"
)

// Announcement kinds.
const (
	AnnouncementGeneral     = "general"
	AnnouncementEvent       = "event"
	AnnouncementMaintenance = "maintenance"
	AnnouncementPromo       = "promo"
	AnnouncementImportant   = "important"
)

// RepairTerminal reports whether no further transition is defined for status.
func RepairTerminal(status string) bool {
	return status == RepairRejected || status == RepairCompleted
}

// InvoiceTerminal reports whether no further transition is defined for status.
func InvoiceTerminal(status string) bool {
	return status == InvoicePaid || status == InvoiceDisputed
}
