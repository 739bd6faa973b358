package services

import (
	"fmt"
	"io"
	"leadcrm/internal/database"
	"leadcrm/internal/models"
	"log"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReplyChecker polls an IMAP inbox for unseen messages and matches
// them to sent outreach emails by Message-ID threading headers, with
// a subject fallback when headers are missing.
type ReplyChecker struct {
	host     string
	port     string
	username string
	password string
	db       *gorm.DB
}

func NewReplyChecker() *ReplyChecker {
	port := os.Getenv("EMAIL_IMAP_PORT")
	if port == "" {
		port = "993"
	}
	return &ReplyChecker{
		host:     os.Getenv("EMAIL_IMAP_HOST"),
		port:     port,
		username: os.Getenv("EMAIL_HOST_USER"),
		password: os.Getenv("EMAIL_HOST_PASSWORD"),
		db:       database.GetDB(),
	}
}

// CheckInbox fetches unseen inbox messages, records the ones that are
// replies to logged outreach emails, and returns how many replies were
// saved.
func (r *ReplyChecker) CheckInbox(maxEmails int) (int, error) {
	if r.host == "" || r.username == "" || r.password == "" {
		return 0, fmt.Errorf("IMAP not configured: set EMAIL_IMAP_HOST, EMAIL_HOST_USER and EMAIL_HOST_PASSWORD")
	}

	c, err := client.DialTLS(r.host+":"+r.port, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer c.Logout()

	if err := c.Login(r.username, r.password); err != nil {
		return 0, fmt.Errorf("IMAP login failed: %w", err)
	}

	if _, err := c.Select("INBOX", false); err != nil {
		return 0, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.Search(criteria)
	if err != nil {
		return 0, fmt.Errorf("IMAP search failed: %w", err)
	}
	if len(uids) == 0 {
		return 0, nil
	}
	if maxEmails > 0 && len(uids) > maxEmails {
		uids = uids[:maxEmails]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, 10)
	fetchErr := make(chan error, 1)
	go func() {
		fetchErr <- c.Fetch(seqSet, []imap.FetchItem{section.FetchItem(), imap.FetchEnvelope}, messages)
	}()

	saved := 0
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		if err := r.processMessage(body); err != nil {
			log.Printf("Reply checker: skipping message: %v", err)
			continue
		}
		saved++
	}
	if err := <-fetchErr; err != nil {
		return saved, fmt.Errorf("IMAP fetch failed: %w", err)
	}
	return saved, nil
}

func (r *ReplyChecker) processMessage(body io.Reader) error {
	mr, err := mail.CreateReader(body)
	if err != nil {
		return fmt.Errorf("failed to parse message: %w", err)
	}

	header := mr.Header
	messageID := strings.Trim(header.Get("Message-Id"), "<> ")
	inReplyTo := strings.Trim(header.Get("In-Reply-To"), "<> ")
	references := header.Get("References")
	subject, _ := header.Subject()
	date, err := header.Date()
	if err != nil {
		date = time.Now()
	}

	fromList, err := header.AddressList("From")
	if err != nil || len(fromList) == 0 {
		return fmt.Errorf("message has no From address")
	}
	from := fromList[0]

	// Already recorded?
	if messageID != "" {
		var count int64
		if err := r.db.Model(&models.EmailReply{}).
			Where("message_id = ?", messageID).
			Count(&count).Error; err == nil && count > 0 {
			return fmt.Errorf("reply %s already processed", messageID)
		}
	}

	matched, err := r.matchEmailLog(inReplyTo, references, subject)
	if err != nil {
		return err
	}

	var textBody strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if _, ok := part.Header.(*mail.InlineHeader); ok {
			content, _ := io.ReadAll(part.Body)
			textBody.Write(content)
		}
	}

	reply := &models.EmailReply{
		ID:               uuid.NewString(),
		EmailLogID:       matched.ID,
		LeadID:           matched.LeadID,
		FromEmail:        from.Address,
		FromName:         from.Name,
		Subject:          subject,
		Body:             textBody.String(),
		ReplyDate:        date,
		MessageID:        messageID,
		InReplyTo:        inReplyTo,
		ReferencesHeader: references,
		CreatedAt:        time.Now(),
	}
	if err := r.db.Create(reply).Error; err != nil {
		return fmt.Errorf("failed to save reply: %w", err)
	}

	// A reply moves the lead forward if it is still untouched.
	r.db.Model(&models.Lead{}).
		Where("id = ? AND status = ?", matched.LeadID, models.LeadNew).
		Update("status", models.LeadContacted)

	log.Printf("Reply checker: saved reply from %s for lead %s", from.Address, matched.LeadID)
	return nil
}

// matchEmailLog resolves which sent email a reply belongs to. Threading
// headers win; a normalized-subject comparison is the fallback.
func (r *ReplyChecker) matchEmailLog(inReplyTo, references, subject string) (*models.EmailLog, error) {
	var candidates []string
	if inReplyTo != "" {
		candidates = append(candidates, inReplyTo)
	}
	for _, ref := range strings.Fields(references) {
		if id := strings.Trim(ref, "<> "); id != "" {
			candidates = append(candidates, id)
		}
	}

	for _, id := range candidates {
		var matched models.EmailLog
		err := r.db.Where("message_id LIKE ?", "%"+id+"%").First(&matched).Error
		if err == nil {
			return &matched, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("failed to look up email log: %w", err)
		}
	}

	// Fallback: strip the "Re:" prefix and match on subject.
	stripped := strings.TrimSpace(subject)
	for {
		lower := strings.ToLower(stripped)
		if !strings.HasPrefix(lower, "re:") {
			break
		}
		stripped = strings.TrimSpace(stripped[3:])
	}
	if stripped != "" {
		var matched models.EmailLog
		err := r.db.Where("LOWER(subject) = LOWER(?)", stripped).
			Order("date DESC").
			First(&matched).Error
		if err == nil {
			return &matched, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("failed to look up email log: %w", err)
		}
	}

	return nil, fmt.Errorf("no matching sent email for subject %q", subject)
}
