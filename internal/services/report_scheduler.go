package services

import (
	"encoding/json"
	"fmt"
	"leadcrm/internal/database"
	"leadcrm/internal/models"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubscriptionStore is the persistence surface the scheduler needs.
type SubscriptionStore interface {
	ListEnabled() ([]models.ReportSubscription, error)
	GetSubscription(id string) (*models.ReportSubscription, error)
	MarkSent(id string, sentAt time.Time) error
	SetLastError(id string, msg string) error
	RecordDelivery(d *models.ReportDelivery) error
}

// ReportBuilder assembles a complete report email for one subscription.
type ReportBuilder interface {
	Build(sub *models.ReportSubscription, now time.Time) (*ReportEmail, error)
}

// ReportSender delivers a composed report and returns the provider
// message ID on success.
type ReportSender interface {
	SendReport(toName, toEmail, subject, text, html string) (string, error)
}

// ReportScheduler wakes every minute, evaluates all enabled
// subscriptions against their own timezones, and dispatches the ones
// that are due. Failures are recorded per subscription and never stop
// the loop.
type ReportScheduler struct {
	store   SubscriptionStore
	builder ReportBuilder
	sender  ReportSender
	clock   Clock

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewReportScheduler(store SubscriptionStore, builder ReportBuilder, sender ReportSender) *ReportScheduler {
	return &ReportScheduler{
		store:   store,
		builder: builder,
		sender:  sender,
		clock:   systemClock{},
	}
}

// Start launches the dispatch loop. Calling Start on a running
// scheduler is a no-op.
func (s *ReportScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})

	go s.run(s.stopChan, s.doneChan)
	log.Println("Report scheduler started (checking every minute)")
}

// Stop signals the loop to finish and waits for the in-flight tick to
// complete. Calling Stop on a stopped scheduler is a no-op.
func (s *ReportScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	done := s.doneChan
	s.mu.Unlock()

	<-done
	log.Println("Report scheduler stopped")
}

// Running reports whether the dispatch loop is active.
func (s *ReportScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ReportScheduler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.RunNow()
		}
	}
}

// RunNow performs one scheduling pass: every enabled subscription that
// is due at the current minute gets a report. It is the same pass the
// ticker performs, exposed for the manual trigger endpoint. Returns the
// number of reports dispatched successfully.
func (s *ReportScheduler) RunNow() int {
	subs, err := s.store.ListEnabled()
	if err != nil {
		log.Printf("Report scheduler: failed to load subscriptions, skipping pass: %v", err)
		return 0
	}

	now := s.clock.Now()
	sent := 0
	for i := range subs {
		sub := &subs[i]
		loc, err := sub.Location()
		if err != nil {
			log.Printf("Report scheduler: subscription %s has invalid timezone %q: %v", sub.ID, sub.Timezone, err)
			continue
		}
		if !isDue(sub, now.In(loc)) {
			continue
		}
		if err := s.dispatch(sub, now); err != nil {
			log.Printf("Report scheduler: subscription %s for %s failed: %v", sub.ID, sub.RecipientEmail, err)
			continue
		}
		sent++
	}
	return sent
}

// SendNow builds and sends the report for one subscription immediately,
// ignoring the schedule. Used by the send-now endpoint.
func (s *ReportScheduler) SendNow(id string) error {
	sub, err := s.store.GetSubscription(id)
	if err != nil {
		return err
	}
	return s.dispatch(sub, s.clock.Now())
}

// dispatch builds, sends and records a single report. A panic in the
// build or send path is contained here so one bad subscription cannot
// take down the pass.
func (s *ReportScheduler) dispatch(sub *models.ReportSubscription, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing subscription %s: %v", sub.ID, r)
			s.recordFailure(sub, now, err)
		}
	}()

	loc, err := sub.Location()
	if err != nil {
		err = fmt.Errorf("invalid timezone %q: %w", sub.Timezone, err)
		s.recordFailure(sub, now, err)
		return err
	}

	report, err := s.builder.Build(sub, now.In(loc))
	if err != nil {
		err = fmt.Errorf("failed to build report: %w", err)
		s.recordFailure(sub, now, err)
		return err
	}

	messageID, err := s.sender.SendReport(sub.RecipientName, sub.RecipientEmail, report.Subject, report.Text, report.HTML)
	if err != nil {
		err = fmt.Errorf("failed to send report: %w", err)
		s.recordFailure(sub, now, err)
		return err
	}

	if err := s.store.MarkSent(sub.ID, now); err != nil {
		log.Printf("Report scheduler: failed to mark subscription %s sent: %v", sub.ID, err)
	}

	summary, _ := json.Marshal(report.Summary)
	delivery := &models.ReportDelivery{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		RecipientEmail: sub.RecipientEmail,
		ReportType:     sub.Frequency,
		Status:         models.DeliverySent,
		PeriodStart:    report.PeriodStart,
		PeriodEnd:      report.PeriodEnd,
		StatsSummary:   datatypes.JSON(summary),
		MessageID:      messageID,
		SentAt:         now,
	}
	if err := s.store.RecordDelivery(delivery); err != nil {
		log.Printf("Report scheduler: failed to record delivery for subscription %s: %v", sub.ID, err)
	}

	log.Printf("Report sent to %s (%s, subscription %s)", sub.RecipientEmail, sub.Frequency, sub.ID)
	return nil
}

// recordFailure logs a failed delivery and sets the subscription's last
// error. lastSentAt is deliberately untouched so the next pass inside
// the same period retries.
func (s *ReportScheduler) recordFailure(sub *models.ReportSubscription, now time.Time, cause error) {
	if err := s.store.SetLastError(sub.ID, cause.Error()); err != nil {
		log.Printf("Report scheduler: failed to store last error for subscription %s: %v", sub.ID, err)
	}

	ref := now
	if loc, locErr := sub.Location(); locErr == nil {
		ref = now.In(loc)
	}
	start, end := periodBoundaries(sub.Frequency, ref)
	delivery := &models.ReportDelivery{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		RecipientEmail: sub.RecipientEmail,
		ReportType:     sub.Frequency,
		Status:         models.DeliveryFailed,
		PeriodStart:    start,
		PeriodEnd:      end,
		ErrorMessage:   cause.Error(),
		SentAt:         now,
	}
	if err := s.store.RecordDelivery(delivery); err != nil {
		log.Printf("Report scheduler: failed to record failed delivery for subscription %s: %v", sub.ID, err)
	}
}

// GormSubscriptionStore backs the scheduler with the application
// database.
type GormSubscriptionStore struct {
	db *gorm.DB
}

func NewGormSubscriptionStore() *GormSubscriptionStore {
	return &GormSubscriptionStore{db: database.GetDB()}
}

func (s *GormSubscriptionStore) ListEnabled() ([]models.ReportSubscription, error) {
	var subs []models.ReportSubscription
	if err := s.db.Where("enabled = ?", true).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load enabled subscriptions: %w", err)
	}
	return subs, nil
}

func (s *GormSubscriptionStore) GetSubscription(id string) (*models.ReportSubscription, error) {
	var sub models.ReportSubscription
	if err := s.db.First(&sub, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscription %s: %w", id, err)
	}
	return &sub, nil
}

func (s *GormSubscriptionStore) MarkSent(id string, sentAt time.Time) error {
	return s.db.Model(&models.ReportSubscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"last_sent_at": sentAt, "last_error": ""}).Error
}

func (s *GormSubscriptionStore) SetLastError(id string, msg string) error {
	return s.db.Model(&models.ReportSubscription{}).
		Where("id = ?", id).
		Update("last_error", msg).Error
}

func (s *GormSubscriptionStore) RecordDelivery(d *models.ReportDelivery) error {
	return s.db.Create(d).Error
}
