package handlers

import (
	"net/http"
	"time"

	"leadcrm/internal/database"
	"leadcrm/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmailLogRequest is the payload for recording an email manually
// (e.g. drafts or mails sent outside the CRM)
type EmailLogRequest struct {
	LeadID      string                   `json:"lead_id" binding:"required"`
	Date        *time.Time               `json:"date"`
	Subject     string                   `json:"subject" binding:"required"`
	Status      models.EmailLogStatus    `json:"status" binding:"required,oneof=sent draft failed"`
	MessageID   string                   `json:"message_id"`
	Attachments []EmailAttachmentRequest `json:"attachments"`
}

// EmailAttachmentRequest describes one attachment's metadata
type EmailAttachmentRequest struct {
	Name string `json:"name" binding:"required"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// ListEmailLogs returns email logs, optionally filtered by lead
func ListEmailLogs(c *gin.Context) {
	db := database.GetDB()
	query := db.Model(&models.EmailLog{})
	if leadID := c.Query("lead_id"); leadID != "" {
		query = query.Where("lead_id = ?", leadID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var logs []models.EmailLog
	if err := query.Order("date DESC").Find(&logs).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve email logs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetEmailLog returns one email log with its attachments
func GetEmailLog(c *gin.Context) {
	db := database.GetDB()
	var entry models.EmailLog
	if err := db.First(&entry, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			handleError(c, http.StatusNotFound, "Email log not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to retrieve email log", err)
		return
	}

	var attachments []models.EmailLogAttachment
	if err := db.Where("email_log_id = ?", entry.ID).Find(&attachments).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve attachments", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"log": entry, "attachments": attachments})
}

// CreateEmailLog records an email against a lead
func CreateEmailLog(c *gin.Context) {
	var req EmailLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	var lead models.Lead
	if err := db.First(&lead, "id = ?", req.LeadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			handleError(c, http.StatusNotFound, "Lead not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to retrieve lead", err)
		return
	}

	now := time.Now()
	date := now
	if req.Date != nil {
		date = *req.Date
	}

	entry := models.EmailLog{
		ID:        uuid.NewString(),
		LeadID:    req.LeadID,
		Date:      date,
		Subject:   req.Subject,
		Status:    req.Status,
		MessageID: req.MessageID,
		CreatedAt: now,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		for _, a := range req.Attachments {
			attachment := models.EmailLogAttachment{
				EmailLogID: entry.ID,
				Name:       a.Name,
				Size:       a.Size,
				Type:       a.Type,
				CreatedAt:  now,
			}
			if err := tx.Create(&attachment).Error; err != nil {
				return err
			}
		}
		if entry.Status == models.EmailSent {
			if err := tx.Model(&models.Lead{}).Where("id = ?", req.LeadID).Updates(map[string]interface{}{
				"last_contacted": date,
				"updated_at":     now,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create email log", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// DeleteEmailLog removes an email log, its attachments and replies
func DeleteEmailLog(c *gin.Context) {
	id := c.Param("id")
	db := database.GetDB()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email_log_id = ?", id).Delete(&models.EmailLogAttachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("email_log_id = ?", id).Delete(&models.EmailReply{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.EmailLog{}, "id = ?", id)
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
			c.JSON(http.StatusNotFound, gin.H{"error": "Email log not found"})
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to delete email log", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email log deleted"})
}
