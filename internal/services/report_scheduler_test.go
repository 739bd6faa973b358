package services

import (
	"errors"
	"leadcrm/internal/models"
	"sync"
	"testing"
	"time"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type fakeStore struct {
	mu         sync.Mutex
	subs       []models.ReportSubscription
	listErr    error
	marked     map[string]time.Time
	lastErrors map[string]string
	deliveries []models.ReportDelivery
}

func newFakeStore(subs ...models.ReportSubscription) *fakeStore {
	return &fakeStore{
		subs:       subs,
		marked:     map[string]time.Time{},
		lastErrors: map[string]string{},
	}
}

func (s *fakeStore) ListEnabled() ([]models.ReportSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var enabled []models.ReportSubscription
	for _, sub := range s.subs {
		if sub.Enabled {
			enabled = append(enabled, sub)
		}
	}
	return enabled, nil
}

func (s *fakeStore) GetSubscription(id string) (*models.ReportSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subs {
		if s.subs[i].ID == id {
			sub := s.subs[i]
			return &sub, nil
		}
	}
	return nil, errors.New("subscription not found")
}

func (s *fakeStore) MarkSent(id string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked[id] = sentAt
	for i := range s.subs {
		if s.subs[i].ID == id {
			t := sentAt
			s.subs[i].LastSentAt = &t
		}
	}
	return nil
}

func (s *fakeStore) SetLastError(id string, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErrors[id] = msg
	return nil
}

func (s *fakeStore) RecordDelivery(d *models.ReportDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, *d)
	return nil
}

type fakeBuilder struct {
	err      error
	panicMsg string
	built    []string
}

func (b *fakeBuilder) Build(sub *models.ReportSubscription, now time.Time) (*ReportEmail, error) {
	if b.panicMsg != "" {
		panic(b.panicMsg)
	}
	if b.err != nil {
		return nil, b.err
	}
	b.built = append(b.built, sub.ID)
	return &ReportEmail{
		Subject:     "CRM Report",
		Text:        "text",
		HTML:        "<p>html</p>",
		PeriodStart: now.AddDate(0, 0, -1),
		PeriodEnd:   now,
		Summary:     map[string]interface{}{"leadsTotal": 1},
	}, nil
}

type fakeSender struct {
	err     error
	failFor map[string]error
	sent    []string
}

func (s *fakeSender) SendReport(toName, toEmail, subject, text, html string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if err, ok := s.failFor[toEmail]; ok {
		return "", err
	}
	s.sent = append(s.sent, toEmail)
	return "msg-" + toEmail, nil
}

func testSub(id string, hour, minute int) models.ReportSubscription {
	return models.ReportSubscription{
		ID:             id,
		RecipientEmail: id + "@example.com",
		RecipientName:  "Manager",
		Frequency:      models.ReportDaily,
		TriggerHour:    hour,
		TriggerMinute:  minute,
		Timezone:       "UTC",
		Enabled:        true,
		TopLeadsCount:  10,
	}
}

func newTestScheduler(store *fakeStore, builder *fakeBuilder, sender *fakeSender, now time.Time) *ReportScheduler {
	s := NewReportScheduler(store, builder, sender)
	s.clock = fixedClock{now: now}
	return s
}

func TestRunNowSendsDueSubscriptions(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	store := newFakeStore(
		testSub("due", 8, 30),
		testSub("not-due", 9, 0),
	)
	builder := &fakeBuilder{}
	sender := &fakeSender{}
	s := newTestScheduler(store, builder, sender, now)

	if sent := s.RunNow(); sent != 1 {
		t.Fatalf("RunNow() = %d, want 1", sent)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "due@example.com" {
		t.Errorf("sent to %v, want [due@example.com]", sender.sent)
	}
	if _, ok := store.marked["due"]; !ok {
		t.Error("due subscription was not marked sent")
	}
	if _, ok := store.marked["not-due"]; ok {
		t.Error("not-due subscription must not be marked sent")
	}
	if len(store.deliveries) != 1 {
		t.Fatalf("recorded %d deliveries, want 1", len(store.deliveries))
	}
	d := store.deliveries[0]
	if d.Status != models.DeliverySent {
		t.Errorf("delivery status = %q, want %q", d.Status, models.DeliverySent)
	}
	if d.MessageID == "" {
		t.Error("sent delivery must carry the provider message ID")
	}
}

func TestRunNowTwiceSameMinuteSendsOnce(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	store := newFakeStore(testSub("sub", 8, 30))
	builder := &fakeBuilder{}
	sender := &fakeSender{}
	s := newTestScheduler(store, builder, sender, now)

	if sent := s.RunNow(); sent != 1 {
		t.Fatalf("first RunNow() = %d, want 1", sent)
	}
	if sent := s.RunNow(); sent != 0 {
		t.Fatalf("second RunNow() = %d, want 0: already sent this period", sent)
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent %d emails, want exactly 1", len(sender.sent))
	}
}

func TestRunNowSendFailureKeepsLastSentAt(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	store := newFakeStore(testSub("sub", 8, 30))
	builder := &fakeBuilder{}
	sender := &fakeSender{err: errors.New("provider down")}
	s := newTestScheduler(store, builder, sender, now)

	if sent := s.RunNow(); sent != 0 {
		t.Fatalf("RunNow() = %d, want 0", sent)
	}
	if _, ok := store.marked["sub"]; ok {
		t.Error("failed send must not mark the subscription sent")
	}
	if store.lastErrors["sub"] == "" {
		t.Error("failed send must record a last error")
	}
	if len(store.deliveries) != 1 || store.deliveries[0].Status != models.DeliveryFailed {
		t.Fatalf("expected one failed delivery, got %+v", store.deliveries)
	}
	if store.deliveries[0].ErrorMessage == "" {
		t.Error("failed delivery must carry the error message")
	}

	// The provider recovers within the same minute: the subscription is
	// still eligible and the retry succeeds.
	sender.err = nil
	if sent := s.RunNow(); sent != 1 {
		t.Fatalf("retry RunNow() = %d, want 1", sent)
	}
	if _, ok := store.marked["sub"]; !ok {
		t.Error("successful retry must mark the subscription sent")
	}
}

func TestRunNowOneFailureDoesNotBlockOthers(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	store := newFakeStore(
		testSub("first", 8, 30),
		testSub("second", 8, 30),
		testSub("third", 8, 30),
	)
	builder := &fakeBuilder{}
	sender := &fakeSender{failFor: map[string]error{"second@example.com": errors.New("mailbox full")}}
	s := newTestScheduler(store, builder, sender, now)

	if sent := s.RunNow(); sent != 2 {
		t.Fatalf("RunNow() = %d, want 2", sent)
	}
	for _, id := range []string{"first", "third"} {
		if _, ok := store.marked[id]; !ok {
			t.Errorf("subscription %s should be marked sent", id)
		}
	}
	if _, ok := store.marked["second"]; ok {
		t.Error("failed subscription must not be marked sent")
	}
	if store.lastErrors["second"] == "" {
		t.Error("failed subscription must record a last error")
	}
	if len(store.deliveries) != 3 {
		t.Fatalf("recorded %d deliveries, want 3", len(store.deliveries))
	}
}

func TestRunNowBuildFailureRecordsFailure(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	store := newFakeStore(testSub("sub", 8, 30))
	builder := &fakeBuilder{err: errors.New("stats query failed")}
	sender := &fakeSender{}
	s := newTestScheduler(store, builder, sender, now)

	if sent := s.RunNow(); sent != 0 {
		t.Fatalf("RunNow() = %d, want 0", sent)
	}
	if len(sender.sent) != 0 {
		t.Error("nothing must be sent when the build fails")
	}
	if len(store.deliveries) != 1 || store.deliveries[0].Status != models.DeliveryFailed {
		t.Fatalf("expected one failed delivery, got %+v", store.deliveries)
	}
}

func TestRunNowPanicIsContained(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	store := newFakeStore(testSub("sub", 8, 30))
	builder := &fakeBuilder{panicMsg: "boom"}
	sender := &fakeSender{}
	s := newTestScheduler(store, builder, sender, now)

	// Must not panic.
	if sent := s.RunNow(); sent != 0 {
		t.Fatalf("RunNow() = %d, want 0", sent)
	}
	if store.lastErrors["sub"] == "" {
		t.Error("panic must be recorded as the subscription's last error")
	}
}

func TestRunNowStoreFailureSkipsPass(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	store := newFakeStore(testSub("sub", 8, 30))
	store.listErr = errors.New("database unreachable")
	builder := &fakeBuilder{}
	sender := &fakeSender{}
	s := newTestScheduler(store, builder, sender, now)

	if sent := s.RunNow(); sent != 0 {
		t.Fatalf("RunNow() = %d, want 0", sent)
	}
	if len(sender.sent) != 0 || len(store.deliveries) != 0 {
		t.Error("a failed subscription load must not dispatch anything")
	}
}

func TestSendNowIgnoresSchedule(t *testing.T) {
	t.Parallel()
	// Deliberately not the trigger minute.
	now := time.Date(2026, 3, 10, 14, 45, 0, 0, time.UTC)

	store := newFakeStore(testSub("sub", 8, 30))
	builder := &fakeBuilder{}
	sender := &fakeSender{}
	s := newTestScheduler(store, builder, sender, now)

	if err := s.SendNow("sub"); err != nil {
		t.Fatalf("SendNow() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	if _, ok := store.marked["sub"]; !ok {
		t.Error("manual send must still mark the subscription sent")
	}
}

func TestSendNowUnknownSubscription(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	s := newTestScheduler(store, &fakeBuilder{}, &fakeSender{}, time.Now())

	if err := s.SendNow("missing"); err == nil {
		t.Error("SendNow() on an unknown subscription must fail")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	s := newTestScheduler(store, &fakeBuilder{}, &fakeSender{}, time.Now())

	s.Start()
	s.Start()
	if !s.Running() {
		t.Fatal("scheduler should be running after Start")
	}

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatal("scheduler should be stopped after Stop")
	}

	// A second full cycle still works.
	s.Start()
	if !s.Running() {
		t.Fatal("scheduler should restart after a Stop")
	}
	s.Stop()
}
