package push

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/fairshare/internal/database"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/store"

	webpush "github.com/SherClockHolmes/webpush-go"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	if pub == "" {
		t.Error("expected non-empty public key")
	}
	if priv == "" {
		t.Error("expected non-empty private key")
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key should be base64url-encoded, 32 bytes P-256 scalar
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	// Generate again, should be different
	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestReminderPayload(t *testing.T) {
	tests := []struct {
		kind      model.ReminderType
		wantTitle string
		wantBody  string
	}{
		{model.ReminderDueSoon, "Due tomorrow", "Dishes is due tomorrow"},
		{model.ReminderDueToday, "Due today", "Dishes is due today"},
		{model.ReminderOverdue, "Overdue", "Dishes is overdue"},
	}
	for _, tt := range tests {
		p := reminderPayload(tt.kind, "Dishes", 7)
		if p.Title != tt.wantTitle {
			t.Errorf("%s: title = %q, want %q", tt.kind, p.Title, tt.wantTitle)
		}
		if p.Body != tt.wantBody {
			t.Errorf("%s: body = %q, want %q", tt.kind, p.Body, tt.wantBody)
		}
		if p.Tag != "assignment-7" {
			t.Errorf("%s: tag = %q, want %q", tt.kind, p.Tag, "assignment-7")
		}
		if p.Kind != tt.kind || p.AssignmentID != 7 || p.TaskName != "Dishes" {
			t.Errorf("%s: payload = %+v", tt.kind, p)
		}
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code        int
		wantErr     bool
		wantExpired bool
	}{
		{201, false, false},
		{404, true, true},
		{410, true, true},
		{413, true, false},
		{500, true, false},
	}
	for _, tt := range tests {
		err := checkStatus(tt.code)
		if (err != nil) != tt.wantErr {
			t.Errorf("checkStatus(%d) = %v, wantErr %v", tt.code, err, tt.wantErr)
		}
		if errors.Is(err, ErrExpired) != tt.wantExpired {
			t.Errorf("checkStatus(%d) expired = %v, want %v", tt.code, errors.Is(err, ErrExpired), tt.wantExpired)
		}
	}
}

func TestUrgencyFor(t *testing.T) {
	if got := urgencyFor(model.ReminderOverdue); got != webpush.UrgencyHigh {
		t.Errorf("overdue urgency = %q, want high", got)
	}
	if got := urgencyFor(model.ReminderDueSoon); got != webpush.UrgencyNormal {
		t.Errorf("due soon urgency = %q, want normal", got)
	}
}

type fakeSender struct {
	sent    []string
	expired map[string]bool
	failing map[string]bool
}

func (f *fakeSender) Send(_ context.Context, sub *model.PushSubscription, payload Payload) error {
	if f.expired[sub.Endpoint] {
		return ErrExpired
	}
	if f.failing[sub.Endpoint] {
		return errors.New("push service returned 500")
	}
	f.sent = append(f.sent, sub.Endpoint+"|"+payload.Title)
	return nil
}

type dispatchFixture struct {
	db         *sql.DB
	reminders  *store.ReminderStore
	push       *store.PushStore
	assignment *model.Assignment
	member     *model.Member
}

func setupDispatch(t *testing.T) dispatchFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h, err := store.NewHouseholdStore(db).Create("Home")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	m, err := store.NewMemberStore(db).Create(h.ID, "Alice", model.MemberAdult)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	task, err := store.NewTaskStore(db).Create(h.ID, "Dishes", model.FrequencyDaily, 1, nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	a, err := store.NewAssignmentStore(db).Create(task.ID, m.ID, h.ID, time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	return dispatchFixture{
		db:         db,
		reminders:  store.NewReminderStore(db),
		push:       store.NewPushStore(db),
		assignment: a,
		member:     m,
	}
}

func newTestDispatcher(f dispatchFixture, sender Sender) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(sender, f.reminders, f.push, store.NewAssignmentStore(f.db), store.NewTaskStore(f.db), nil, logger)
}

func TestDispatch_SendsDueReminders(t *testing.T) {
	f := setupDispatch(t)
	if _, err := f.push.CreateSubscription(f.member.ID, "https://push.example/a", "p256", "auth"); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if _, err := f.reminders.Schedule(f.assignment.ID, f.member.ID, model.ReminderDueToday, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := f.reminders.Schedule(f.assignment.ID, f.member.ID, model.ReminderDueSoon, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	sender := &fakeSender{}
	report, err := newTestDispatcher(f, sender).Dispatch(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if report.Due != 1 || report.Sent != 1 {
		t.Errorf("report = %+v, want due=1 sent=1", report)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "https://push.example/a|Due today" {
		t.Errorf("sent = %v", sender.sent)
	}

	// Second pass finds nothing.
	report, err = newTestDispatcher(f, sender).Dispatch(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if report.Due != 0 {
		t.Errorf("second pass due = %d, want 0", report.Due)
	}
}

func TestDispatch_ExpiredSubscriptionDeleted(t *testing.T) {
	f := setupDispatch(t)
	if _, err := f.push.CreateSubscription(f.member.ID, "https://push.example/gone", "p256", "auth"); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if _, err := f.reminders.Schedule(f.assignment.ID, f.member.ID, model.ReminderOverdue, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	sender := &fakeSender{expired: map[string]bool{"https://push.example/gone": true}}
	report, err := newTestDispatcher(f, sender).Dispatch(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if report.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", report.Dropped)
	}

	subs, err := f.push.ListByMember(f.member.ID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("subscriptions = %d, want 0", len(subs))
	}
}

func TestDispatch_FailedStaysQueued(t *testing.T) {
	f := setupDispatch(t)
	if _, err := f.push.CreateSubscription(f.member.ID, "https://push.example/down", "p256", "auth"); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if _, err := f.reminders.Schedule(f.assignment.ID, f.member.ID, model.ReminderDueToday, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	sender := &fakeSender{failing: map[string]bool{"https://push.example/down": true}}
	report, err := newTestDispatcher(f, sender).Dispatch(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("failed = %d, want 1", report.Failed)
	}

	due, err := f.reminders.ListDue(time.Now())
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 {
		t.Errorf("due after failure = %d, want 1", len(due))
	}
}

func TestDispatch_StaleAssignmentDropped(t *testing.T) {
	f := setupDispatch(t)
	if _, err := f.push.CreateSubscription(f.member.ID, "https://push.example/a", "p256", "auth"); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if _, err := f.reminders.Schedule(f.assignment.ID, f.member.ID, model.ReminderDueToday, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := store.NewAssignmentStore(f.db).UpdateStatus(f.assignment.ID, model.StatusPending, model.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	sender := &fakeSender{}
	report, err := newTestDispatcher(f, sender).Dispatch(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if report.Dropped != 1 || len(sender.sent) != 0 {
		t.Errorf("report = %+v, sent = %v", report, sender.sent)
	}
}
