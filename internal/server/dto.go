package server

import (
	"encoding/json"

	"garagedesk/internal/domain"
	"garagedesk/internal/repo"
	"garagedesk/internal/report"
)

// Request payloads

type CreateRepairRequest struct {
	RequesterID string `json:"requester_id,omitempty"`
	Vehicle     string `json:"vehicle"`
	Problem     string `json:"problem"`
	Tier        string `json:"tier,omitempty" enum:"simple,medium,complex,very_complex"`
}

type RepairTransitionRequest struct {
	Action string `json:"action" enum:"accept,reject,progress,complete"`
}

type IssueInvoiceRequest struct {
	PayerID     string `json:"payer_id"`
	Vehicle     string `json:"vehicle"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

type HireStaffRequest struct {
	ActorID   string `json:"actor_id"`
	Rank      string `json:"rank" enum:"trainee,junior,mechanic,senior,head,owner"`
	Specialty string `json:"specialty,omitempty"`
}

type PromoteStaffRequest struct {
	Rank string `json:"rank" enum:"trainee,junior,mechanic,senior,head,owner"`
}

type AnnounceRequest struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
	Kind  string `json:"kind,omitempty" enum:"general,event,maintenance,promo,important"`
}

type DevLoginRequest struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Response payloads

type MessageRefResponse struct {
	Surface   string `json:"surface"`
	MessageID string `json:"message_id"`
}

type RepairResponse struct {
	ID            string              `json:"id"`
	RequesterID   string              `json:"requester_id"`
	Vehicle       string              `json:"vehicle"`
	Problem       string              `json:"problem"`
	Tier          string              `json:"tier" enum:"simple,medium,complex,very_complex"`
	Status        string              `json:"status" enum:"pending,accepted,rejected,in_progress,completed"`
	AssignedTo    *string             `json:"assigned_to,omitempty"`
	CreatedAt     string              `json:"created_at" format:"date-time"`
	LastUpdatedAt string              `json:"last_updated_at" format:"date-time"`
	Message       *MessageRefResponse `json:"message,omitempty"`
}

type InvoiceResponse struct {
	ID          string              `json:"id"`
	IssuerID    string              `json:"issuer_id"`
	PayerID     string              `json:"payer_id"`
	Vehicle     string              `json:"vehicle"`
	Description string              `json:"description"`
	Amount      int64               `json:"amount"`
	Status      string              `json:"status" enum:"pending,paid,disputed"`
	CreatedAt   string              `json:"created_at" format:"date-time"`
	PaidAt      *string             `json:"paid_at,omitempty" format:"date-time"`
	DisputedAt  *string             `json:"disputed_at,omitempty" format:"date-time"`
	ResolvedBy  *string             `json:"resolved_by,omitempty"`
	Message     *MessageRefResponse `json:"message,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
}

type StaffResponse struct {
	ActorID   string `json:"actor_id"`
	Rank      string `json:"rank" enum:"trainee,junior,mechanic,senior,head,owner"`
	Specialty string `json:"specialty,omitempty"`
	HiredBy   string `json:"hired_by"`
	HiredAt   string `json:"hired_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type MechanicStatsResponse struct {
	ActorID          string `json:"actor_id"`
	RepairsAssigned  int    `json:"repairs_assigned"`
	RepairsCompleted int    `json:"repairs_completed"`
	InvoicesIssued   int    `json:"invoices_issued"`
	InvoicesPaid     int    `json:"invoices_paid"`
	Revenue          int64  `json:"revenue"`
}

type ReportResponse struct {
	Period  string         `json:"period" enum:"daily,weekly,monthly"`
	Since   string         `json:"since" format:"date-time"`
	Until   string         `json:"until" format:"date-time"`
	Repairs map[string]int `json:"repairs"`
	Invoices struct {
		Total    int   `json:"total"`
		Paid     int   `json:"paid"`
		Disputed int   `json:"disputed"`
		Pending  int   `json:"pending"`
		Revenue  int64 `json:"revenue"`
	} `json:"invoices"`
}

type AnnouncementResponse struct {
	ID       string `json:"id"`
	ActorID  string `json:"actor_id"`
	Kind     string `json:"kind" enum:"general,event,maintenance,promo,important"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Surface  string `json:"surface"`
	PostedAt string `json:"posted_at" format:"date-time"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type WhoAmIResponse struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles"`
	Ranks   []string `json:"ranks"`
	Source  string   `json:"source"`
}

func messageRefResponse(ref domain.MessageRef) *MessageRefResponse {
	if ref.MessageID == "" {
		return nil
	}
	return &MessageRefResponse{Surface: ref.Surface, MessageID: ref.MessageID}
}

func repairResponse(rec domain.RepairRequest) RepairResponse {
	return RepairResponse{
		ID:            rec.ID,
		RequesterID:   rec.RequesterID,
		Vehicle:       rec.Vehicle,
		Problem:       rec.Problem,
		Tier:          rec.Tier,
		Status:        rec.Status,
		AssignedTo:    rec.AssignedTo,
		CreatedAt:     rec.CreatedAt,
		LastUpdatedAt: rec.LastUpdatedAt,
		Message:       messageRefResponse(rec.Message),
	}
}

func invoiceResponse(inv domain.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:          inv.ID,
		IssuerID:    inv.IssuerID,
		PayerID:     inv.PayerID,
		Vehicle:     inv.Vehicle,
		Description: inv.Description,
		Amount:      inv.Amount,
		Status:      inv.Status,
		CreatedAt:   inv.CreatedAt,
		PaidAt:      inv.PaidAt,
		DisputedAt:  inv.DisputedAt,
		ResolvedBy:  inv.ResolvedBy,
		Message:     messageRefResponse(inv.Message),
	}
}

func staffResponse(m domain.StaffMember) StaffResponse {
	return StaffResponse{
		ActorID:   m.ActorID,
		Rank:      m.Rank,
		Specialty: m.Specialty,
		HiredBy:   m.HiredBy,
		HiredAt:   m.HiredAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func announcementResponse(a domain.Announcement) AnnouncementResponse {
	return AnnouncementResponse{
		ID:       a.ID,
		ActorID:  a.ActorID,
		Kind:     a.Kind,
		Title:    a.Title,
		Body:     a.Body,
		Surface:  a.Surface,
		PostedAt: a.PostedAt,
	}
}

func statsResponse(s repo.MechanicStats) MechanicStatsResponse {
	return MechanicStatsResponse{
		ActorID:          s.ActorID,
		RepairsAssigned:  s.RepairsAssigned,
		RepairsCompleted: s.RepairsCompleted,
		InvoicesIssued:   s.InvoicesIssued,
		InvoicesPaid:     s.InvoicesPaid,
		Revenue:          s.Revenue,
	}
}

func reportResponse(s report.Summary) ReportResponse {
	res := ReportResponse{
		Period:  string(s.Period),
		Since:   s.Since,
		Until:   s.Until,
		Repairs: s.Repairs,
	}
	if res.Repairs == nil {
		res.Repairs = map[string]int{}
	}
	res.Invoices.Total = s.Invoices.Total
	res.Invoices.Paid = s.Invoices.Paid
	res.Invoices.Disputed = s.Invoices.Disputed
	res.Invoices.Pending = s.Invoices.Pending
	res.Invoices.Revenue = s.Invoices.Revenue
	return res
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func mapRepairs(items []domain.RepairRequest) []RepairResponse {
	res := make([]RepairResponse, 0, len(items))
	for _, rec := range items {
		res = append(res, repairResponse(rec))
	}
	return res
}

func mapInvoices(items []domain.Invoice) []InvoiceResponse {
	res := make([]InvoiceResponse, 0, len(items))
	for _, inv := range items {
		res = append(res, invoiceResponse(inv))
	}
	return res
}

func mapStaff(items []domain.StaffMember) []StaffResponse {
	res := make([]StaffResponse, 0, len(items))
	for _, m := range items {
		res = append(res, staffResponse(m))
	}
	return res
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
