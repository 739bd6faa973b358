package handlers

import (
	"net/http"
	"strings"
	"time"

	"leadcrm/internal/database"
	"leadcrm/internal/models"
	"leadcrm/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListLeads returns leads with optional status, country and search filters
func ListLeads(c *gin.Context) {
	db := database.GetDB()
	query := db.Model(&models.Lead{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if country := c.Query("country"); country != "" {
		query = query.Where("country = ?", country)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(company_name) LIKE ? OR LOWER(key_person_name) LIKE ?", pattern, pattern)
	}

	var leads []models.Lead
	if err := query.Order("created_at DESC").Find(&leads).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve leads", err)
		return
	}
	c.JSON(http.StatusOK, leads)
}

// GetLead returns one lead by ID
func GetLead(c *gin.Context) {
	db := database.GetDB()
	var lead models.Lead
	if err := db.First(&lead, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			handleError(c, http.StatusNotFound, "Lead not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to retrieve lead", err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

// CreateLead adds a new lead
func CreateLead(c *gin.Context) {
	var req models.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	status := req.Status
	if status == "" {
		status = models.LeadNew
	}

	now := time.Now()
	lead := models.Lead{
		ID:                uuid.NewString(),
		CompanyName:       req.CompanyName,
		Industry:          req.Industry,
		Country:           req.Country,
		City:              req.City,
		Website:           req.Website,
		KeyPersonName:     req.KeyPersonName,
		KeyPersonTitle:    req.KeyPersonTitle,
		KeyPersonEmail:    req.KeyPersonEmail,
		KeyPersonPhone:    req.KeyPersonPhone,
		KeyPersonLinkedin: req.KeyPersonLinkedin,
		TotalEvents:       req.TotalEvents,
		VietnamEvents:     req.VietnamEvents,
		NumberOfDelegates: req.NumberOfDelegates,
		PastEventsHistory: req.PastEventsHistory,
		Notes:             req.Notes,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	db := database.GetDB()
	if err := db.Create(&lead).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create lead", err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

// UpdateLead applies partial updates to a lead
func UpdateLead(c *gin.Context) {
	db := database.GetDB()
	var lead models.Lead
	if err := db.First(&lead, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			handleError(c, http.StatusNotFound, "Lead not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to retrieve lead", err)
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	// Identifiers and computed fields are not writable through this endpoint.
	for _, field := range []string{"id", "created_at", "lead_score", "score_factors"} {
		delete(updates, field)
	}
	if status, ok := updates["status"].(string); ok {
		switch models.LeadStatus(status) {
		case models.LeadNew, models.LeadContacted, models.LeadQualified, models.LeadWon, models.LeadLost:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
	}
	updates["updated_at"] = time.Now()

	if err := db.Model(&lead).Updates(updates).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update lead", err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

// DeleteLead removes a lead and its email history
func DeleteLead(c *gin.Context) {
	id := c.Param("id")
	db := database.GetDB()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lead_id = ?", id).Delete(&models.EmailReply{}).Error; err != nil {
			return err
		}
		var logIDs []string
		if err := tx.Model(&models.EmailLog{}).Where("lead_id = ?", id).
			Pluck("id", &logIDs).Error; err != nil {
			return err
		}
		if len(logIDs) > 0 {
			if err := tx.Where("email_log_id IN ?", logIDs).Delete(&models.EmailLogAttachment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("lead_id = ?", id).Delete(&models.EmailLog{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Lead{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to delete lead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lead deleted"})
}

// GetLeadStats returns pipeline counts used by the dashboard
func GetLeadStats(c *gin.Context) {
	db := database.GetDB()
	stats := models.LeadStats{ByCountry: map[string]int64{}}

	if err := db.Model(&models.Lead{}).Count(&stats.Total).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to compute lead stats", err)
		return
	}

	type statusCount struct {
		Status models.LeadStatus
		Count  int64
	}
	var byStatus []statusCount
	if err := db.Model(&models.Lead{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to compute lead stats", err)
		return
	}
	for _, row := range byStatus {
		switch row.Status {
		case models.LeadNew:
			stats.New = row.Count
		case models.LeadContacted:
			stats.Contacted = row.Count
		case models.LeadQualified:
			stats.Qualified = row.Count
		case models.LeadWon:
			stats.Won = row.Count
		case models.LeadLost:
			stats.Lost = row.Count
		}
	}

	type countryCount struct {
		Country string
		Count   int64
	}
	var byCountry []countryCount
	if err := db.Model(&models.Lead{}).
		Select("coalesce(nullif(country, ''), 'Unknown') as country, count(*) as count").
		Group("1").
		Scan(&byCountry).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to compute lead stats", err)
		return
	}
	for _, row := range byCountry {
		stats.ByCountry[row.Country] = row.Count
	}

	c.JSON(http.StatusOK, stats)
}

// ListLeadsWithEmailCount returns leads joined with how many emails each has received
func ListLeadsWithEmailCount(c *gin.Context) {
	db := database.GetDB()
	var rows []models.LeadWithEmailCount
	err := db.Model(&models.Lead{}).
		Select(`lead.*, count(email_log.id) as email_count`).
		Joins(`LEFT JOIN email_log ON email_log.lead_id = lead.id AND email_log.status = ?`, models.EmailSent).
		Group("lead.id").
		Order("lead.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve leads", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// NormalizeLeadLocation geocodes a lead's free-text location into
// standard country and city names and saves them.
func NormalizeLeadLocation(c *gin.Context) {
	db := database.GetDB()
	var lead models.Lead
	if err := db.First(&lead, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			handleError(c, http.StatusNotFound, "Lead not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to retrieve lead", err)
		return
	}

	loc, err := services.NormalizeLeadLocation(lead.Country, lead.City)
	if err != nil {
		handleError(c, http.StatusBadGateway, "Failed to normalize location", err)
		return
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if loc.Country != "" {
		updates["country"] = loc.Country
	}
	if loc.City != "" {
		updates["city"] = loc.City
	}
	if err := db.Model(&lead).Updates(updates).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to save normalized location", err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// SendEmailsRequest selects leads and a template for a bulk send
type SendEmailsRequest struct {
	LeadIDs    []string `json:"lead_ids" binding:"required,min=1"`
	TemplateID string   `json:"template_id" binding:"required"`
}

// SendEmailResult reports the outcome of one lead in a bulk send
type SendEmailResult struct {
	LeadID string `json:"lead_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SendEmailsToLeads sends a template to the selected leads, logging each
// send. One bad lead does not stop the batch.
func SendEmailsToLeads(c *gin.Context) {
	var req SendEmailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	var tmpl models.EmailTemplate
	if err := db.First(&tmpl, "id = ?", req.TemplateID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			handleError(c, http.StatusNotFound, "Template not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to retrieve template", err)
		return
	}

	emailService := services.NewEmailService()
	results := make([]SendEmailResult, 0, len(req.LeadIDs))
	sent := 0

	for _, leadID := range req.LeadIDs {
		var lead models.Lead
		if err := db.First(&lead, "id = ?", leadID).Error; err != nil {
			results = append(results, SendEmailResult{LeadID: leadID, Status: "failed", Error: "lead not found"})
			continue
		}
		if lead.KeyPersonEmail == "" {
			results = append(results, SendEmailResult{LeadID: leadID, Status: "failed", Error: "lead has no contact email"})
			continue
		}

		subject := fillTemplate(tmpl.Subject, &lead)
		body := fillTemplate(tmpl.Body, &lead)

		now := time.Now()
		entry := models.EmailLog{
			ID:        uuid.NewString(),
			LeadID:    lead.ID,
			Date:      now,
			Subject:   subject,
			CreatedAt: now,
		}

		messageID, err := emailService.SendOutreachEmail(lead.KeyPersonName, lead.KeyPersonEmail, subject, body)
		if err != nil {
			entry.Status = models.EmailFailed
			db.Create(&entry)
			results = append(results, SendEmailResult{LeadID: leadID, Status: "failed", Error: err.Error()})
			continue
		}

		entry.Status = models.EmailSent
		entry.MessageID = messageID
		if err := db.Create(&entry).Error; err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to log sent email", err)
			return
		}

		db.Model(&models.Lead{}).Where("id = ?", lead.ID).Updates(map[string]interface{}{
			"last_contacted": now,
			"updated_at":     now,
		})
		db.Model(&models.Lead{}).
			Where("id = ? AND status = ?", lead.ID, models.LeadNew).
			Update("status", models.LeadContacted)

		results = append(results, SendEmailResult{LeadID: leadID, Status: "sent"})
		sent++
	}

	c.JSON(http.StatusOK, gin.H{"sent": sent, "total": len(req.LeadIDs), "results": results})
}

// fillTemplate substitutes {{field}} placeholders with lead data
func fillTemplate(text string, lead *models.Lead) string {
	replacer := strings.NewReplacer(
		"{{company_name}}", lead.CompanyName,
		"{{industry}}", lead.Industry,
		"{{country}}", lead.Country,
		"{{city}}", lead.City,
		"{{key_person_name}}", lead.KeyPersonName,
		"{{key_person_title}}", lead.KeyPersonTitle,
	)
	return replacer.Replace(text)
}
