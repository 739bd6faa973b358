package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"leadcrm/internal/database"
	"leadcrm/internal/models"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

// EnrichService talks to the Gemini REST API for lead research, email
// drafting, lead scoring and chat over the lead database.
type EnrichService struct {
	apiKey string
	client *http.Client
	db     *gorm.DB
}

func NewEnrichService() *EnrichService {
	return &EnrichService{
		apiKey: os.Getenv("GEMINI_API_KEY"),
		client: &http.Client{Timeout: 60 * time.Second},
		db:     database.GetDB(),
	}
}

// KeyPersonContact is the structured result parsed out of an
// enrichment response.
type KeyPersonContact struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// EnrichmentResult bundles the raw research text with the parsed
// contact block.
type EnrichmentResult struct {
	ResearchText string            `json:"research_text"`
	Contact      *KeyPersonContact `json:"contact,omitempty"`
}

// ScoringFactors is the per-criterion breakdown of a lead score.
type ScoringFactors struct {
	EmailEngagement int `json:"emailEngagement"`
	EventHistory    int `json:"eventHistory"`
	ContactQuality  int `json:"contactQuality"`
	CompanySize     int `json:"companySize"`
}

// ScoringResult is the outcome of scoring one lead.
type ScoringResult struct {
	Score     int            `json:"score"`
	Factors   ScoringFactors `json:"factors"`
	Reasoning string         `json:"reasoning"`
}

// generate sends a single prompt and returns the first candidate's
// text.
func (s *EnrichService) generate(ctx context.Context, prompt string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY is not configured")
	}

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", geminiEndpoint+"?key="+s.apiKey, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach Gemini API: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode Gemini response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini returned no candidates")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// EnrichLead researches the lead's organisation, looking for one key
// person with at least an email or a phone number. The research text
// is stored on the lead and any parsed contact fields fill gaps in the
// existing record without overwriting known values.
func (s *EnrichService) EnrichLead(ctx context.Context, leadID string) (*EnrichmentResult, error) {
	var lead models.Lead
	if err := s.db.First(&lead, "id = ?", leadID).Error; err != nil {
		return nil, fmt.Errorf("lead not found: %w", err)
	}

	text, err := s.generate(ctx, buildEnrichPrompt(&lead))
	if err != nil {
		return nil, err
	}

	result := &EnrichmentResult{
		ResearchText: text,
		Contact:      parseKeyPersonContact(text),
	}

	updates := map[string]interface{}{"research_notes": text}
	if c := result.Contact; c != nil {
		if lead.KeyPersonName == "" && c.Name != "" {
			updates["key_person_name"] = c.Name
		}
		if lead.KeyPersonTitle == "" && c.Title != "" {
			updates["key_person_title"] = c.Title
		}
		if lead.KeyPersonEmail == "" && c.Email != "" {
			updates["key_person_email"] = c.Email
		}
		if lead.KeyPersonPhone == "" && c.Phone != "" {
			updates["key_person_phone"] = c.Phone
		}
	}
	if err := s.db.Model(&models.Lead{}).Where("id = ?", leadID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to save enrichment: %w", err)
	}
	return result, nil
}

func buildEnrichPrompt(lead *models.Lead) string {
	keyPersonInfo := "Key contact person: Not specified"
	if strings.TrimSpace(lead.KeyPersonName) != "" {
		keyPersonInfo = "Key contact person (if known): " + strings.TrimSpace(lead.KeyPersonName)
	}
	cityInfo := "Location: Not specified"
	if strings.TrimSpace(lead.City) != "" {
		cityInfo = "Located in: " + strings.TrimSpace(lead.City)
	}
	org := strings.TrimSpace(lead.CompanyName)

	return fmt.Sprintf(`GOAL: Find ONE key person for this organization who has: (1) full name, (2) job title, and (3) at least EMAIL or PHONE.
Do NOT return a key person with both Email and Phone as "Not found" unless you have completed all search steps below and still found nothing.

ORGANIZATION TO RESEARCH:
- Name: %s
%s
%s

KEY PERSON ROLE PRIORITY (choose someone with one of these roles, and with at least email or phone):
- Sales/Marketing: Sales Director, Marketing Manager, Business Development, CMO, Communications Director
- Events: Director of Events, Conference Director, Event Manager, Meeting Planner
- Executive: Director, Manager, Head, VP, President, CEO, Secretariat
- Other: Partnership Manager, Client Relations, Outreach Coordinator

RULES:
- The key person MUST have a clear full name and job title.
- You MUST have at least EMAIL or PHONE for that person to report them. If you only find name and title but no contact, continue searching using the steps below.
- Only after exhausting the search strategy may you return "Email: Not found" and "Phone: Not found".
- Do not invent or guess; use only information you find via search.
- Prefer person-specific email over generic info@/contact@ when possible.

SEARCH STRATEGY (follow in order; use Google Search):
1. Find the organization's official website (search: "%s" official website).
2. On that site, look for: "Contact", "Our Team", "Leadership", "Secretariat", "Staff", "About Us".
3. On those pages, look for email and phone. Prefer person-specific emails (e.g. firstname.lastname@domain, name@domain). If you only find info@ or contact@, note it and keep searching for a named contact with direct email or phone.
4. If needed, search: "%s" contact email, "%s" secretariat phone, "%s" director contact (use only publicly available information).

OUTPUT FORMAT (use this EXACT format so the system can parse it):

**KEY PERSON CONTACT:**
- Name: [Full Name]
- Title: [Job Title]
- Email: [email@domain.com or "Not found"]
- Phone: [Phone number with country code or "Not found"]

Always include the KEY PERSON CONTACT block in your response with the exact format above.`, org, keyPersonInfo, cityInfo, org, org, org, org)
}

var contactFieldPattern = regexp.MustCompile(`(?mi)^[-*\s]*(Name|Title|Email|Phone):\s*(.+)$`)

// parseKeyPersonContact extracts the structured contact block from a
// research response. Returns nil when no block is present or every
// field is "Not found".
func parseKeyPersonContact(text string) *KeyPersonContact {
	idx := strings.Index(text, "KEY PERSON CONTACT")
	if idx < 0 {
		return nil
	}

	contact := &KeyPersonContact{}
	for _, m := range contactFieldPattern.FindAllStringSubmatch(text[idx:], -1) {
		value := strings.Trim(strings.TrimSpace(m[2]), `"*[]`)
		if strings.EqualFold(value, "Not found") {
			value = ""
		}
		switch strings.ToLower(m[1]) {
		case "name":
			if contact.Name == "" {
				contact.Name = value
			}
		case "title":
			if contact.Title == "" {
				contact.Title = value
			}
		case "email":
			if contact.Email == "" {
				contact.Email = value
			}
		case "phone":
			if contact.Phone == "" {
				contact.Phone = value
			}
		}
	}

	if contact.Name == "" && contact.Title == "" && contact.Email == "" && contact.Phone == "" {
		return nil
	}
	return contact
}

// DraftEmail generates an outreach email body for a lead, optionally
// seeded with a template and extra instructions.
func (s *EnrichService) DraftEmail(ctx context.Context, leadID, templateBody, instructions string) (string, error) {
	var lead models.Lead
	if err := s.db.First(&lead, "id = ?", leadID).Error; err != nil {
		return "", fmt.Errorf("lead not found: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a professional sales assistant for an event venue. Write a personalised outreach email for the lead below.\n\n")
	fmt.Fprintf(&b, "LEAD:\n- Company: %s\n- Industry: %s\n- Country: %s\n- Contact: %s (%s)\n- Past events: %d (Vietnam: %d)\n",
		lead.CompanyName, lead.Industry, lead.Country, lead.KeyPersonName, lead.KeyPersonTitle, lead.TotalEvents, lead.VietnamEvents)
	if lead.Notes != "" {
		fmt.Fprintf(&b, "- Notes: %s\n", lead.Notes)
	}
	if templateBody != "" {
		fmt.Fprintf(&b, "\nUSE THIS TEMPLATE AS A BASE:\n%s\n", templateBody)
	}
	if instructions != "" {
		fmt.Fprintf(&b, "\nADDITIONAL INSTRUCTIONS:\n%s\n", instructions)
	}
	b.WriteString("\nRULES:\n- Professional but warm tone.\n- Reference the lead's event history where relevant.\n- Keep it under 200 words.\n- Output ONLY the email body, no subject line, no commentary.")

	return s.generate(ctx, b.String())
}

var jsonBlockPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// ScoreLead asks the model to score one lead from 0 to 100 using its
// interaction history, persists the score and factor breakdown, and
// returns the result.
func (s *EnrichService) ScoreLead(ctx context.Context, leadID string) (*ScoringResult, error) {
	var lead models.Lead
	if err := s.db.First(&lead, "id = ?", leadID).Error; err != nil {
		return nil, fmt.Errorf("lead not found: %w", err)
	}

	var emailsSent, replies int64
	if err := s.db.Model(&models.EmailLog{}).
		Where("lead_id = ? AND status = ?", leadID, models.EmailSent).
		Count(&emailsSent).Error; err != nil {
		return nil, fmt.Errorf("failed to count emails: %w", err)
	}
	if err := s.db.Model(&models.EmailReply{}).
		Where("lead_id = ?", leadID).
		Count(&replies).Error; err != nil {
		return nil, fmt.Errorf("failed to count replies: %w", err)
	}

	prompt := buildScoringPrompt(&lead, emailsSent, replies)
	text, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	jsonText := jsonBlockPattern.FindString(text)
	if jsonText == "" {
		return nil, fmt.Errorf("scoring response contained no JSON")
	}

	var result ScoringResult
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		return nil, fmt.Errorf("failed to parse scoring response: %w", err)
	}
	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}

	factorsJSON, _ := json.Marshal(result.Factors)
	if err := s.db.Model(&models.Lead{}).Where("id = ?", leadID).Updates(map[string]interface{}{
		"lead_score":    result.Score,
		"score_factors": datatypes.JSON(factorsJSON),
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to save lead score: %w", err)
	}
	return &result, nil
}

func buildScoringPrompt(lead *models.Lead, emailsSent, replies int64) string {
	delegates := "Unknown"
	if lead.NumberOfDelegates != nil {
		delegates = fmt.Sprintf("%d", *lead.NumberOfDelegates)
	}

	return fmt.Sprintf(`You are a lead scoring AI for an event venue sales CRM.

Analyze this lead and assign a quality score from 0-100 based on their potential value.

SCORING CRITERIA (0-100):
1. Email Engagement (0-25 points):
   - No emails sent: 5 points
   - Emails sent but no reply: 10 points
   - Lead replied once: 18 points
   - Multiple replies/active conversation: 25 points

2. Event History (0-25 points):
   - No events: 0 points
   - 1-2 total events: 8 points
   - 3-5 total events: 15 points
   - 6+ total events: 20 points
   - Has Vietnam events: +5 bonus points

3. Contact Quality (0-25 points):
   - Generic contact info: 5 points
   - Has valid email/phone: 12 points
   - Has decision maker title (Director, Manager, CEO): 20 points
   - Has LinkedIn profile: +5 bonus points

4. Company/Event Size (0-25 points):
   - Small (<50 delegates): 8 points
   - Medium (50-200 delegates): 15 points
   - Large (200-500 delegates): 22 points
   - Very Large (500+ delegates): 25 points
   - Unknown size: 10 points

LEAD DATA:
Company: %s
Industry: %s
Country: %s

Contact Person:
- Name: %s
- Title: %s
- Email: %s
- Phone: %s
- LinkedIn: %s

Event History:
- Total Events: %d
- Vietnam Events: %d
- Number of Delegates: %s

Email Interaction:
- Emails Sent: %d
- Replies Received: %d

RESPOND WITH VALID JSON ONLY:
{
  "score": <total_score_0_to_100>,
  "factors": {
    "emailEngagement": <0_to_25>,
    "eventHistory": <0_to_25>,
    "contactQuality": <0_to_25>,
    "companySize": <0_to_25>
  },
  "reasoning": "<brief_explanation_of_scoring>"
}`,
		lead.CompanyName, lead.Industry, lead.Country,
		lead.KeyPersonName, orNA(lead.KeyPersonTitle), orNA(lead.KeyPersonEmail),
		orNA(lead.KeyPersonPhone), orNA(lead.KeyPersonLinkedin),
		lead.TotalEvents, lead.VietnamEvents, delegates,
		emailsSent, replies)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// chatHistoryLimit caps how many stored turns are replayed into the prompt
const chatHistoryLimit = 20

// Chat answers a free-form question using a digest of the lead
// database and the user's recent conversation as context. Both the
// question and the answer are persisted so history survives reloads.
func (s *EnrichService) Chat(ctx context.Context, username, question string) (string, error) {
	var leads []models.Lead
	if err := s.db.Order("lead_score DESC NULLS LAST").Limit(100).Find(&leads).Error; err != nil {
		return "", fmt.Errorf("failed to load leads: %w", err)
	}

	var digest strings.Builder
	for _, lead := range leads {
		score := "unscored"
		if lead.LeadScore != nil {
			score = fmt.Sprintf("%d", *lead.LeadScore)
		}
		fmt.Fprintf(&digest, "- %s | %s | %s | status=%s | score=%s | events=%d (VN %d)\n",
			lead.CompanyName, lead.Industry, lead.Country, lead.Status, score, lead.TotalEvents, lead.VietnamEvents)
	}

	var history []models.ChatMessage
	if err := s.db.Where("username = ?", username).
		Order("created_at DESC").Limit(chatHistoryLimit).
		Find(&history).Error; err != nil {
		return "", fmt.Errorf("failed to load chat history: %w", err)
	}

	userTurn := models.ChatMessage{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      models.ChatRoleUser,
		Content:   question,
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(&userTurn).Error; err != nil {
		return "", fmt.Errorf("failed to save chat message: %w", err)
	}

	prompt := fmt.Sprintf(`You are a CRM assistant for an event venue sales team. Answer the question using ONLY the lead database below. Be concise and concrete; cite company names where relevant. If the data cannot answer the question, say so.

LEAD DATABASE (top 100 by score):
%s%s
QUESTION:
%s`, digest.String(), chatTranscript(history), question)

	answer, err := s.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	reply := models.ChatMessage{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      models.ChatRoleAssistant,
		Content:   answer,
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(&reply).Error; err != nil {
		return "", fmt.Errorf("failed to save chat reply: %w", err)
	}
	return answer, nil
}

// chatTranscript renders stored history, queried newest-first, as an
// oldest-first conversation block. Empty history renders nothing.
func chatTranscript(newestFirst []models.ChatMessage) string {
	if len(newestFirst) == 0 {
		return "\n"
	}

	var b strings.Builder
	b.WriteString("\nCONVERSATION SO FAR:\n")
	for i := len(newestFirst) - 1; i >= 0; i-- {
		label := "User"
		if newestFirst[i].Role == models.ChatRoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, newestFirst[i].Content)
	}
	return b.String()
}
