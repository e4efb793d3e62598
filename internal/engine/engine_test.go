package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"garagedesk/internal/automod"
	"garagedesk/internal/config"
	"garagedesk/internal/db"
	"garagedesk/internal/domain"
	"garagedesk/internal/engine"
	"garagedesk/internal/engine/policy"
	"garagedesk/internal/migrate"
	"garagedesk/internal/notify"
	"garagedesk/internal/repo"
)

// recorderGateway captures everything the engine asks the presentation
// layer to do, so tests can assert on surfaces and deliveries.
type recorderGateway struct {
	mu         sync.Mutex
	seq        int
	publishes  []renderCall
	updates    []renderCall
	relocates  []relocateCall
	directs    []directCall
	announces  []announceCall
	failDirect map[string]bool
}

type renderCall struct {
	Surface string
	Ref     domain.MessageRef
	View    notify.View
}

type relocateCall struct {
	From    domain.MessageRef
	Surface string
	View    notify.View
}

type directCall struct {
	Recipient string
	Msg       notify.Message
}

type announceCall struct {
	Surface string
	Msg     notify.Message
}

func (g *recorderGateway) next() string {
	g.seq++
	return fmt.Sprintf("msg-%d", g.seq)
}

func (g *recorderGateway) Publish(ctx context.Context, surface string, view notify.View) (domain.MessageRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ref := domain.MessageRef{Surface: surface, MessageID: g.next()}
	g.publishes = append(g.publishes, renderCall{Surface: surface, Ref: ref, View: view})
	return ref, nil
}

func (g *recorderGateway) Update(ctx context.Context, ref domain.MessageRef, view notify.View) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updates = append(g.updates, renderCall{Surface: ref.Surface, Ref: ref, View: view})
	return nil
}

func (g *recorderGateway) Relocate(ctx context.Context, from domain.MessageRef, surface string, view notify.View) (domain.MessageRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ref := domain.MessageRef{Surface: surface, MessageID: g.next()}
	g.relocates = append(g.relocates, relocateCall{From: from, Surface: surface, View: view})
	return ref, nil
}

func (g *recorderGateway) Direct(ctx context.Context, recipientID string, msg notify.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failDirect[recipientID] {
		return errors.New("recipient refuses direct delivery")
	}
	g.directs = append(g.directs, directCall{Recipient: recipientID, Msg: msg})
	return nil
}

func (g *recorderGateway) Announce(ctx context.Context, surface string, msg notify.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.announces = append(g.announces, announceCall{Surface: surface, Msg: msg})
	return nil
}

func (g *recorderGateway) directsTo(recipient string) []directCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []directCall
	for _, d := range g.directs {
		if d.Recipient == recipient {
			out = append(out, d)
		}
	}
	return out
}

type testEnv struct {
	Engine  engine.Engine
	Gateway *recorderGateway
	Ctx     context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	gw := &recorderGateway{failDirect: map[string]bool{}}
	cfg := config.Default("garage-1")
	eng := engine.New(conn, cfg, gw)
	eng.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Gateway: gw, Ctx: context.Background()}
}

func mustCreateRepair(t *testing.T, env testEnv, tier string) domain.RepairRequest {
	t.Helper()
	rec, err := env.Engine.CreateRepair(env.Ctx, engine.RepairCreateOptions{
		RequesterID: "customer-1",
		Vehicle:     "Sultan RS",
		Problem:     "engine knocking",
		Tier:        tier,
	})
	if err != nil {
		t.Fatalf("create repair: %v", err)
	}
	return rec
}

func TestCreateRepairDefaultsAndRender(t *testing.T) {
	env := newTestEnv(t)
	rec := mustCreateRepair(t, env, "")
	if !strings.HasPrefix(rec.ID, "REP-") {
		t.Fatalf("expected REP- id, got %s", rec.ID)
	}
	if rec.Tier != policy.TierMedium {
		t.Fatalf("expected default tier medium, got %s", rec.Tier)
	}
	if rec.Status != domain.RepairPending {
		t.Fatalf("expected pending, got %s", rec.Status)
	}
	if len(env.Gateway.publishes) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(env.Gateway.publishes))
	}
	pub := env.Gateway.publishes[0]
	if pub.Surface != env.Engine.Config.Surface(domain.SurfaceIntake) {
		t.Fatalf("published on %s", pub.Surface)
	}
	wantActions := []string{domain.ActionAccept, domain.ActionReject, domain.ActionProgress, domain.ActionComplete}
	if len(pub.View.Actions) != len(wantActions) {
		t.Fatalf("pending actions = %v", pub.View.Actions)
	}
	stored, err := env.Engine.Repo.GetRepair(env.Ctx, rec.ID)
	if err != nil {
		t.Fatalf("get repair: %v", err)
	}
	if stored.Message.MessageID == "" {
		t.Fatalf("message ref not recorded")
	}
}

func TestRepairAcceptRelocatesAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	rec := mustCreateRepair(t, env, policy.TierMedium)
	got, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: rec.ID,
		ActorID:  "mech-1",
		Ranks:    []policy.Rank{policy.RankMechanic},
		Action:   domain.ActionAccept,
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != domain.RepairAccepted {
		t.Fatalf("status = %s", got.Status)
	}
	if got.AssignedTo == nil || *got.AssignedTo != "mech-1" {
		t.Fatalf("assignee = %v", got.AssignedTo)
	}
	if len(env.Gateway.relocates) != 1 {
		t.Fatalf("expected relocation, got %d", len(env.Gateway.relocates))
	}
	reloc := env.Gateway.relocates[0]
	if reloc.Surface != env.Engine.Config.Surface(domain.SurfaceInProgress) {
		t.Fatalf("relocated to %s", reloc.Surface)
	}
	// Accepted records only offer completion.
	if len(reloc.View.Actions) != 1 || reloc.View.Actions[0] != domain.ActionComplete {
		t.Fatalf("accepted actions = %v", reloc.View.Actions)
	}
	if got := env.Gateway.directsTo("customer-1"); len(got) != 1 {
		t.Fatalf("requester notifications = %d", len(got))
	}
}

func TestRepairRejectStaysInPlace(t *testing.T) {
	env := newTestEnv(t)
	rec := mustCreateRepair(t, env, policy.TierSimple)
	got, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: rec.ID,
		ActorID:  "mech-1",
		Ranks:    []policy.Rank{policy.RankTrainee},
		Action:   domain.ActionReject,
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != domain.RepairRejected {
		t.Fatalf("status = %s", got.Status)
	}
	if len(env.Gateway.relocates) != 0 {
		t.Fatalf("reject must not relocate")
	}
	if len(env.Gateway.updates) != 1 {
		t.Fatalf("expected in-place update, got %d", len(env.Gateway.updates))
	}
	if actions := env.Gateway.updates[0].View.Actions; len(actions) != 0 {
		t.Fatalf("terminal record still offers %v", actions)
	}
}

func TestRepairCompleteFromAcceptedAndInProgress(t *testing.T) {
	env := newTestEnv(t)
	ranks := []policy.Rank{policy.RankSenior}

	accepted := mustCreateRepair(t, env, policy.TierComplex)
	if _, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: accepted.ID, ActorID: "mech-1", Ranks: ranks, Action: domain.ActionAccept,
	}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	done, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: accepted.ID, ActorID: "mech-1", Ranks: ranks, Action: domain.ActionComplete,
	})
	if err != nil || done.Status != domain.RepairCompleted {
		t.Fatalf("complete from accepted: %v (status %s)", err, done.Status)
	}

	working := mustCreateRepair(t, env, policy.TierComplex)
	if _, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: working.ID, ActorID: "mech-2", Ranks: ranks, Action: domain.ActionProgress,
	}); err != nil {
		t.Fatalf("progress: %v", err)
	}
	done, err = env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: working.ID, ActorID: "mech-2", Ranks: ranks, Action: domain.ActionComplete,
	})
	if err != nil || done.Status != domain.RepairCompleted {
		t.Fatalf("complete from in_progress: %v (status %s)", err, done.Status)
	}
}

func TestRepairTierGate(t *testing.T) {
	env := newTestEnv(t)
	rec := mustCreateRepair(t, env, policy.TierVeryComplex)

	_, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: rec.ID, ActorID: "rookie", Ranks: []policy.Rank{policy.RankTrainee}, Action: domain.ActionAccept,
	})
	var fe policy.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected tier gate, got %v", err)
	}
	// The gate applies to rejection too.
	_, err = env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: rec.ID, ActorID: "rookie", Ranks: []policy.Rank{policy.RankJunior}, Action: domain.ActionReject,
	})
	if !errors.As(err, &fe) {
		t.Fatalf("expected tier gate on reject, got %v", err)
	}
	// Head mechanic bypasses the tier entirely.
	if _, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: rec.ID, ActorID: "boss", Ranks: []policy.Rank{policy.RankHead}, Action: domain.ActionAccept,
	}); err != nil {
		t.Fatalf("head accept: %v", err)
	}
}

func TestRepairTerminalStatesRefuseActions(t *testing.T) {
	env := newTestEnv(t)
	ranks := []policy.Rank{policy.RankHead}
	rec := mustCreateRepair(t, env, policy.TierMedium)
	for _, action := range []string{domain.ActionAccept, domain.ActionComplete} {
		if _, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
			RepairID: rec.ID, ActorID: "boss", Ranks: ranks, Action: action,
		}); err != nil {
			t.Fatalf("%s: %v", action, err)
		}
	}
	for _, action := range []string{domain.ActionAccept, domain.ActionReject, domain.ActionProgress, domain.ActionComplete} {
		_, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
			RepairID: rec.ID, ActorID: "boss", Ranks: ranks, Action: action,
		})
		var te engine.InvalidTransitionError
		if !errors.As(err, &te) {
			t.Fatalf("%s on completed: expected invalid transition, got %v", action, err)
		}
		if te.From != domain.RepairCompleted {
			t.Fatalf("error reports status %s", te.From)
		}
	}
}

func TestRepairUnknownIDAndAction(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: "REP-0000000000", ActorID: "boss", Ranks: []policy.Rank{policy.RankOwner}, Action: domain.ActionAccept,
	})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	rec := mustCreateRepair(t, env, policy.TierMedium)
	if _, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: rec.ID, ActorID: "boss", Ranks: []policy.Rank{policy.RankOwner}, Action: "explode",
	}); err == nil {
		t.Fatalf("expected unknown action error")
	}
}

func TestConcurrentRepairActionsSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	rec := mustCreateRepair(t, env, policy.TierMedium)
	actions := []string{domain.ActionAccept, domain.ActionReject}
	errs := make([]error, len(actions))
	var wg sync.WaitGroup
	for i, action := range actions {
		wg.Add(1)
		go func(i int, action string) {
			defer wg.Done()
			_, errs[i] = env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
				RepairID: rec.ID,
				ActorID:  "mech-" + action,
				Ranks:    []policy.Rank{policy.RankMechanic},
				Action:   action,
			})
		}(i, action)
	}
	wg.Wait()
	winners := 0
	for i, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var te engine.InvalidTransitionError
		if !errors.As(err, &te) {
			t.Fatalf("action %s failed with %v", actions[i], err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one committed action, got %d", winners)
	}
	stored, err := env.Engine.Repo.GetRepair(env.Ctx, rec.ID)
	if err != nil {
		t.Fatalf("get repair: %v", err)
	}
	if stored.Status != domain.RepairAccepted && stored.Status != domain.RepairRejected {
		t.Fatalf("status = %s", stored.Status)
	}
}

func mustIssueInvoice(t *testing.T, env testEnv, amount int64) domain.Invoice {
	t.Helper()
	inv, warnings, err := env.Engine.IssueInvoice(env.Ctx, engine.InvoiceIssueOptions{
		IssuerID:    "mech-1",
		PayerID:     "customer-1",
		Vehicle:     "Sultan RS",
		Description: "engine rebuild",
		Amount:      amount,
	})
	if err != nil {
		t.Fatalf("issue invoice: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	return inv
}

func TestIssueInvoice(t *testing.T) {
	env := newTestEnv(t)
	inv := mustIssueInvoice(t, env, 2500)
	if !strings.HasPrefix(inv.ID, "INV-") {
		t.Fatalf("expected INV- id, got %s", inv.ID)
	}
	if inv.Status != domain.InvoicePending {
		t.Fatalf("status = %s", inv.Status)
	}
	if got := env.Gateway.directsTo("customer-1"); len(got) != 1 {
		t.Fatalf("payer notifications = %d", len(got))
	}
	if len(env.Gateway.publishes) != 1 {
		t.Fatalf("publishes = %d", len(env.Gateway.publishes))
	}
	if actions := env.Gateway.publishes[0].View.Actions; len(actions) != 2 {
		t.Fatalf("pending invoice actions = %v", actions)
	}
}

func TestIssueInvoiceInvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	for _, amount := range []int64{0, -50} {
		_, _, err := env.Engine.IssueInvoice(env.Ctx, engine.InvoiceIssueOptions{
			IssuerID: "mech-1", PayerID: "customer-1", Vehicle: "v", Description: "d", Amount: amount,
		})
		var ae engine.InvalidAmountError
		if !errors.As(err, &ae) {
			t.Fatalf("amount %d: expected invalid amount, got %v", amount, err)
		}
	}
	count, err := env.Engine.Repo.CountInvoices(env.Ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected invoices were stored: %d", count)
	}
}

func TestIssueInvoiceUnreachablePayerWarns(t *testing.T) {
	env := newTestEnv(t)
	env.Gateway.failDirect["customer-1"] = true
	inv, warnings, err := env.Engine.IssueInvoice(env.Ctx, engine.InvoiceIssueOptions{
		IssuerID: "mech-1", PayerID: "customer-1", Vehicle: "v", Description: "d", Amount: 100,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected warning, got %v", warnings)
	}
	stored, err := env.Engine.Repo.GetInvoice(env.Ctx, inv.ID)
	if err != nil {
		t.Fatalf("invoice not stored: %v", err)
	}
	if stored.Status != domain.InvoicePending {
		t.Fatalf("status = %s", stored.Status)
	}
}

func TestPayInvoice(t *testing.T) {
	env := newTestEnv(t)
	inv := mustIssueInvoice(t, env, 900)
	paid, err := env.Engine.PayInvoice(env.Ctx, inv.ID, "customer-1")
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != domain.InvoicePaid || paid.PaidAt == nil {
		t.Fatalf("paid = %+v", paid)
	}
	// Paid invoices offer no further actions.
	last := env.Gateway.updates[len(env.Gateway.updates)-1]
	if len(last.View.Actions) != 0 {
		t.Fatalf("paid invoice still offers %v", last.View.Actions)
	}
	if got := env.Gateway.directsTo("mech-1"); len(got) != 1 {
		t.Fatalf("issuer notifications = %d", len(got))
	}
}

func TestPayInvoiceNotPayer(t *testing.T) {
	env := newTestEnv(t)
	inv := mustIssueInvoice(t, env, 900)
	_, err := env.Engine.PayInvoice(env.Ctx, inv.ID, "stranger")
	var pe engine.NotPayerError
	if !errors.As(err, &pe) {
		t.Fatalf("expected not-payer, got %v", err)
	}
	_, err = env.Engine.DisputeInvoice(env.Ctx, inv.ID, "stranger")
	if !errors.As(err, &pe) {
		t.Fatalf("expected not-payer on dispute, got %v", err)
	}
	stored, _ := env.Engine.Repo.GetInvoice(env.Ctx, inv.ID)
	if stored.Status != domain.InvoicePending {
		t.Fatalf("status = %s", stored.Status)
	}
}

func TestDisputeEscalatesToOwners(t *testing.T) {
	env := newTestEnv(t)
	for _, owner := range []string{"owner-1", "owner-2"} {
		if _, err := env.Engine.HireStaff(env.Ctx, engine.StaffHireOptions{
			ActorID: "founder", Ranks: []policy.Rank{policy.RankOwner}, TargetID: owner, Rank: "owner",
		}); err != nil {
			t.Fatalf("hire %s: %v", owner, err)
		}
	}
	inv := mustIssueInvoice(t, env, 4200)
	disputed, err := env.Engine.DisputeInvoice(env.Ctx, inv.ID, "customer-1")
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if disputed.Status != domain.InvoiceDisputed || disputed.DisputedAt == nil {
		t.Fatalf("disputed = %+v", disputed)
	}
	for _, owner := range []string{"owner-1", "owner-2"} {
		if got := env.Gateway.directsTo(owner); len(got) != 1 {
			t.Fatalf("owner %s notifications = %d", owner, len(got))
		}
	}
	if got := env.Gateway.directsTo("mech-1"); len(got) != 1 {
		t.Fatalf("issuer notifications = %d", len(got))
	}
}

func TestInvoiceTerminalStates(t *testing.T) {
	env := newTestEnv(t)
	inv := mustIssueInvoice(t, env, 100)
	if _, err := env.Engine.PayInvoice(env.Ctx, inv.ID, "customer-1"); err != nil {
		t.Fatalf("pay: %v", err)
	}
	var te engine.InvalidTransitionError
	_, err := env.Engine.DisputeInvoice(env.Ctx, inv.ID, "customer-1")
	if !errors.As(err, &te) {
		t.Fatalf("dispute after pay: %v", err)
	}
	_, err = env.Engine.PayInvoice(env.Ctx, inv.ID, "customer-1")
	if !errors.As(err, &te) {
		t.Fatalf("double pay: %v", err)
	}
	if te.From != domain.InvoicePaid {
		t.Fatalf("error reports status %s", te.From)
	}
}

func TestStaffManagement(t *testing.T) {
	env := newTestEnv(t)
	ownerRanks := []policy.Rank{policy.RankOwner}
	headRanks := []policy.Rank{policy.RankHead}

	head, err := env.Engine.HireStaff(env.Ctx, engine.StaffHireOptions{
		ActorID: "founder", Ranks: ownerRanks, TargetID: "boss", Rank: "head",
	})
	if err != nil || head.Rank != "head" {
		t.Fatalf("hire head: %v", err)
	}
	// Head may manage below head, not at or above.
	if _, err := env.Engine.HireStaff(env.Ctx, engine.StaffHireOptions{
		ActorID: "boss", Ranks: headRanks, TargetID: "mech-1", Rank: "mechanic", Specialty: "engines",
	}); err != nil {
		t.Fatalf("head hires mechanic: %v", err)
	}
	var me policy.ForbiddenManagementError
	if _, err := env.Engine.HireStaff(env.Ctx, engine.StaffHireOptions{
		ActorID: "boss", Ranks: headRanks, TargetID: "rival", Rank: "head",
	}); !errors.As(err, &me) {
		t.Fatalf("head hiring head: %v", err)
	}

	// Duplicate hire is rejected.
	if _, err := env.Engine.HireStaff(env.Ctx, engine.StaffHireOptions{
		ActorID: "founder", Ranks: ownerRanks, TargetID: "mech-1", Rank: "senior",
	}); err == nil {
		t.Fatalf("expected duplicate hire error")
	}

	promoted, err := env.Engine.PromoteStaff(env.Ctx, engine.StaffRankOptions{
		ActorID: "boss", Ranks: headRanks, TargetID: "mech-1", Rank: "senior",
	})
	if err != nil || promoted.Rank != "senior" {
		t.Fatalf("promote: %v", err)
	}

	if err := env.Engine.FireStaff(env.Ctx, engine.StaffFireOptions{
		ActorID: "boss", Ranks: headRanks, TargetID: "boss",
	}); !errors.As(err, &me) {
		t.Fatalf("head firing head: %v", err)
	}
	if err := env.Engine.FireStaff(env.Ctx, engine.StaffFireOptions{
		ActorID: "founder", Ranks: ownerRanks, TargetID: "mech-1",
	}); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if _, err := env.Engine.Repo.GetStaff(env.Ctx, "mech-1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("fired member still on roster: %v", err)
	}
	roster, err := env.Engine.Roster(env.Ctx)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("roster size = %d", len(roster))
	}
}

func TestEventLogRecordsTransitions(t *testing.T) {
	env := newTestEnv(t)
	rec := mustCreateRepair(t, env, policy.TierMedium)
	if _, err := env.Engine.TransitionRepair(env.Ctx, engine.RepairTransitionOptions{
		RepairID: rec.ID, ActorID: "mech-1", Ranks: []policy.Rank{policy.RankMechanic}, Action: domain.ActionAccept,
	}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	inv := mustIssueInvoice(t, env, 300)
	if _, err := env.Engine.PayInvoice(env.Ctx, inv.ID, "customer-1"); err != nil {
		t.Fatalf("pay: %v", err)
	}
	events, err := env.Engine.Repo.ListEvents(env.Ctx, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	types := map[string]bool{}
	for _, evt := range events {
		types[evt.Type] = true
	}
	for _, want := range []string{"repair.created", "repair.accept", "invoice.issued", "invoice.pay"} {
		if !types[want] {
			t.Fatalf("missing event %s in %v", want, types)
		}
	}
}

func TestAnnouncePostsToAnnouncementsSurface(t *testing.T) {
	env := newTestEnv(t)
	ann, err := env.Engine.Announce(env.Ctx, engine.AnnounceOptions{
		ActorID: "mech-1",
		Ranks:   []policy.Rank{policy.RankMechanic},
		Title:   "Closed for the street race",
		Body:    "Workshop shut Saturday, back Sunday noon.",
		Kind:    domain.AnnouncementEvent,
	})
	if err != nil {
		t.Fatalf("announce: %v", err)
	}
	if !strings.HasPrefix(ann.ID, "ANN-") {
		t.Fatalf("expected ANN- id, got %s", ann.ID)
	}
	if len(env.Gateway.announces) != 1 {
		t.Fatalf("announces = %d", len(env.Gateway.announces))
	}
	call := env.Gateway.announces[0]
	if call.Surface != "announcements" || ann.Surface != "announcements" {
		t.Fatalf("posted on %s (record says %s)", call.Surface, ann.Surface)
	}
	if call.Msg.Severity != "info" {
		t.Fatalf("event announcement severity = %s", call.Msg.Severity)
	}
	if call.Msg.Fields["kind"] != domain.AnnouncementEvent || call.Msg.Fields["by"] != "mech-1" {
		t.Fatalf("fields = %v", call.Msg.Fields)
	}
	events, err := env.Engine.Repo.ListEvents(env.Ctx, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	found := false
	for _, evt := range events {
		if evt.Type == "announcement.posted" && evt.EntityID == ann.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("announcement.posted event missing for %s", ann.ID)
	}
}

func TestAnnounceImportantGoesOutUrgent(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Announce(env.Ctx, engine.AnnounceOptions{
		ActorID: "boss", Ranks: []policy.Rank{policy.RankOwner},
		Body: "Pay your invoices before Friday.", Kind: domain.AnnouncementImportant,
	}); err != nil {
		t.Fatalf("announce: %v", err)
	}
	if got := env.Gateway.announces[0].Msg.Severity; got != "urgent" {
		t.Fatalf("severity = %s", got)
	}
}

func TestAnnounceRequiresMechanicRank(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Announce(env.Ctx, engine.AnnounceOptions{
		ActorID: "newbie", Ranks: []policy.Rank{policy.RankJunior}, Body: "free oil changes",
	})
	var fe policy.ForbiddenManagementError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(env.Gateway.announces) != 0 {
		t.Fatalf("junior still reached the surface: %d", len(env.Gateway.announces))
	}
}

func TestAnnounceRejectsBannedWords(t *testing.T) {
	env := newTestEnv(t)
	cfg := config.Default("garage-1")
	cfg.Moderation.BannedWords = []string{"scam"}
	env.Engine.Mod = automod.New(cfg, nil)
	_, err := env.Engine.Announce(env.Ctx, engine.AnnounceOptions{
		ActorID: "mech-1", Ranks: []policy.Rank{policy.RankMechanic},
		Body: "That competitor garage is a scam",
	})
	var re engine.MessageRejectedError
	if !errors.As(err, &re) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if re.Reason != "banned_word" || re.Word != "scam" {
		t.Fatalf("verdict = %+v", re)
	}
	if len(env.Gateway.announces) != 0 {
		t.Fatalf("rejected text still reached the surface")
	}
}

func TestAnnounceRateLimited(t *testing.T) {
	env := newTestEnv(t)
	cfg := config.Default("garage-1")
	cfg.Moderation.MaxMessages = 1
	cfg.Moderation.WindowSeconds = 60
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env.Engine.Mod = automod.New(cfg, func() time.Time { return fixed })
	opts := engine.AnnounceOptions{
		ActorID: "mech-1", Ranks: []policy.Rank{policy.RankMechanic}, Body: "first",
	}
	if _, err := env.Engine.Announce(env.Ctx, opts); err != nil {
		t.Fatalf("first announce: %v", err)
	}
	opts.Body = "second"
	_, err := env.Engine.Announce(env.Ctx, opts)
	var re engine.MessageRejectedError
	if !errors.As(err, &re) || re.Reason != "rate_limit" {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if len(env.Gateway.announces) != 1 {
		t.Fatalf("announces = %d", len(env.Gateway.announces))
	}
}

func TestDisputeMovesRenderToDisputesSurface(t *testing.T) {
	env := newTestEnv(t)
	inv := mustIssueInvoice(t, env, 750)
	if _, err := env.Engine.DisputeInvoice(env.Ctx, inv.ID, "customer-1"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if len(env.Gateway.relocates) != 1 {
		t.Fatalf("relocates = %d", len(env.Gateway.relocates))
	}
	reloc := env.Gateway.relocates[0]
	if reloc.Surface != "disputes" {
		t.Fatalf("relocated to %s", reloc.Surface)
	}
	if len(reloc.View.Actions) != 0 {
		t.Fatalf("disputed invoice still offers %v", reloc.View.Actions)
	}
	stored, err := env.Engine.Repo.GetInvoice(env.Ctx, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if stored.Message.Surface != "disputes" || stored.Message.MessageID == "" {
		t.Fatalf("stored render ref = %+v", stored.Message)
	}
}
