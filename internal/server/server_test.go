package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"garagedesk/internal/config"
	"garagedesk/internal/db"
	"garagedesk/internal/engine"
	"garagedesk/internal/migrate"
	"garagedesk/internal/notify"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	cfg := config.Default("garage-1")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg, &notify.LogGateway{})
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth: AuthConfig{
			JWTSecret:              "test-secret",
			AllowLegacyActorHeader: true,
			EnableDevLogin:         true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func actorHeaders(actorID string, roles string) map[string]string {
	h := map[string]string{"X-Actor-Id": actorID}
	if roles != "" {
		h["X-Actor-Roles"] = roles
	}
	return h
}

func TestRepairLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	createRes, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/repairs", map[string]any{
		"vehicle": "Sultan RS",
		"problem": "engine knocking",
		"tier":    "medium",
	}, actorHeaders("customer-1", ""))
	if createRes.StatusCode != http.StatusCreated {
		t.Fatalf("create repair status %d: %s", createRes.StatusCode, string(data))
	}
	var created RepairResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal repair: %v", err)
	}
	if created.Status != "pending" {
		t.Fatalf("status = %s", created.Status)
	}

	acceptRes, acceptBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/repairs/"+created.ID+"/transition", map[string]any{
		"action": "accept",
	}, actorHeaders("mech-1", "role-mechanic"))
	if acceptRes.StatusCode != http.StatusOK {
		t.Fatalf("accept status %d: %s", acceptRes.StatusCode, string(acceptBody))
	}
	var accepted RepairResponse
	_ = json.Unmarshal(acceptBody, &accepted)
	if accepted.Status != "accepted" || accepted.AssignedTo == nil || *accepted.AssignedTo != "mech-1" {
		t.Fatalf("accepted = %+v", accepted)
	}

	completeRes, completeBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/repairs/"+created.ID+"/transition", map[string]any{
		"action": "complete",
	}, actorHeaders("mech-1", "role-mechanic"))
	if completeRes.StatusCode != http.StatusOK {
		t.Fatalf("complete status %d: %s", completeRes.StatusCode, string(completeBody))
	}

	// A completed repair refuses further actions with a conflict.
	againRes, againBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/repairs/"+created.ID+"/transition", map[string]any{
		"action": "accept",
	}, actorHeaders("mech-1", "role-mechanic"))
	if againRes.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", againRes.StatusCode, string(againBody))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(againBody, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "invalid_transition" {
		t.Fatalf("error code = %s", envelope.Error.Code)
	}
}

func TestRepairTierGateOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/repairs", map[string]any{
		"vehicle": "Cheetah",
		"problem": "transmission",
		"tier":    "very_complex",
	}, actorHeaders("customer-1", ""))
	var created RepairResponse
	_ = json.Unmarshal(data, &created)

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/repairs/"+created.ID+"/transition", map[string]any{
		"action": "accept",
	}, actorHeaders("rookie", "role-trainee"))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", res.StatusCode, string(body))
	}
}

func TestInvoicePayerGateOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	issueRes, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/invoices", map[string]any{
		"payer_id":    "customer-1",
		"vehicle":     "Sultan RS",
		"description": "engine rebuild",
		"amount":      2500,
	}, actorHeaders("mech-1", "role-mechanic"))
	if issueRes.StatusCode != http.StatusCreated {
		t.Fatalf("issue status %d: %s", issueRes.StatusCode, string(data))
	}
	var inv InvoiceResponse
	_ = json.Unmarshal(data, &inv)

	// A stranger may not pay someone else's invoice.
	strangerRes, strangerBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/invoices/"+inv.ID+"/pay", nil, actorHeaders("stranger", ""))
	if strangerRes.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", strangerRes.StatusCode, string(strangerBody))
	}

	payRes, payBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/invoices/"+inv.ID+"/pay", nil, actorHeaders("customer-1", ""))
	if payRes.StatusCode != http.StatusOK {
		t.Fatalf("pay status %d: %s", payRes.StatusCode, string(payBody))
	}
	var paid InvoiceResponse
	_ = json.Unmarshal(payBody, &paid)
	if paid.Status != "paid" || paid.PaidAt == nil {
		t.Fatalf("paid = %+v", paid)
	}

	// Paid is terminal.
	disputeRes, disputeBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/invoices/"+inv.ID+"/dispute", nil, actorHeaders("customer-1", ""))
	if disputeRes.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", disputeRes.StatusCode, string(disputeBody))
	}
}

func TestInvalidAmountOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/invoices", map[string]any{
		"payer_id":    "customer-1",
		"vehicle":     "v",
		"description": "d",
		"amount":      0,
	}, actorHeaders("mech-1", ""))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(body))
	}
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, _ := doJSON(t, client, http.MethodGet, srv.URL+"/v0/repairs", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	// Health stays open.
	health, _ := doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if health.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", health.StatusCode)
	}
}

func TestJWTAuthViaDevLogin(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	loginRes, loginBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{
		"actor_id": "boss",
		"roles":    []string{"role-head-mechanic"},
	}, nil)
	if loginRes.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", loginRes.StatusCode, string(loginBody))
	}
	var login DevLoginResponse
	if err := json.Unmarshal(loginBody, &login); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}

	meRes, meBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	if meRes.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", meRes.StatusCode, string(meBody))
	}
	var who WhoAmIResponse
	_ = json.Unmarshal(meBody, &who)
	if who.ActorID != "boss" || who.Source != "jwt" {
		t.Fatalf("who = %+v", who)
	}
	if len(who.Ranks) != 1 || who.Ranks[0] != "head" {
		t.Fatalf("ranks = %v", who.Ranks)
	}
}

func TestStaffRosterOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	hireRes, hireBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/staff", map[string]any{
		"actor_id":  "mech-1",
		"rank":      "mechanic",
		"specialty": "engines",
	}, actorHeaders("founder", "role-owner"))
	if hireRes.StatusCode != http.StatusCreated {
		t.Fatalf("hire status %d: %s", hireRes.StatusCode, string(hireBody))
	}

	// A mechanic cannot hire.
	noRes, noBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/staff", map[string]any{
		"actor_id": "friend",
		"rank":     "trainee",
	}, actorHeaders("mech-1", ""))
	if noRes.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", noRes.StatusCode, string(noBody))
	}

	listRes, listBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/staff", nil, actorHeaders("founder", "role-owner"))
	if listRes.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", listRes.StatusCode, string(listBody))
	}
	var roster []StaffResponse
	if err := json.Unmarshal(listBody, &roster); err != nil {
		t.Fatalf("unmarshal roster: %v", err)
	}
	if len(roster) != 1 || roster[0].ActorID != "mech-1" {
		t.Fatalf("roster = %+v", roster)
	}
}

func TestReportOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	doJSON(t, client, http.MethodPost, srv.URL+"/v0/repairs", map[string]any{
		"vehicle": "v", "problem": "p",
	}, actorHeaders("customer-1", ""))
	doJSON(t, client, http.MethodPost, srv.URL+"/v0/invoices", map[string]any{
		"payer_id": "customer-1", "vehicle": "v", "description": "d", "amount": 300,
	}, actorHeaders("mech-1", ""))

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/v0/reports/daily", nil, actorHeaders("founder", "role-owner"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("report status %d: %s", res.StatusCode, string(body))
	}
	var rep ReportResponse
	if err := json.Unmarshal(body, &rep); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if rep.Invoices.Total != 1 || rep.Invoices.Pending != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestEventsOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	doJSON(t, client, http.MethodPost, srv.URL+"/v0/repairs", map[string]any{
		"vehicle": "v", "problem": "p",
	}, actorHeaders("customer-1", ""))

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/v0/events", nil, actorHeaders("founder", ""))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, string(body))
	}
	var page paginatedEvents
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(page.Items) == 0 || page.Items[0].Type != "repair.created" {
		t.Fatalf("events = %+v", page.Items)
	}
}

func TestAnnouncementOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/announcements", map[string]any{
		"title": "New paint booth",
		"body":  "Custom resprays start Monday.",
		"kind":  "promo",
	}, actorHeaders("mech-1", "role-mechanic"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("announce status %d: %s", res.StatusCode, string(body))
	}
	var ann AnnouncementResponse
	_ = json.Unmarshal(body, &ann)
	if ann.Kind != "promo" || ann.Surface != "announcements" {
		t.Fatalf("announcement = %+v", ann)
	}

	// Juniors do not get the megaphone.
	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/v0/announcements", map[string]any{
		"body": "party at the garage",
	}, actorHeaders("newbie", "role-junior-mechanic"))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", res.StatusCode, string(body))
	}
}
