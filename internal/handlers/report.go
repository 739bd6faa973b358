package handlers

import (
	"net/http"
	"strconv"
	"time"

	"leadcrm/internal/database"
	"leadcrm/internal/models"
	"leadcrm/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var reportScheduler *services.ReportScheduler

// SetReportScheduler wires the running scheduler into the report
// endpoints. Called once at startup.
func SetReportScheduler(s *services.ReportScheduler) {
	reportScheduler = s
}

// ListReportSubscriptions returns all configured report subscriptions
func ListReportSubscriptions(c *gin.Context) {
	db := database.GetDB()
	var subs []models.ReportSubscription
	if err := db.Order("created_at ASC").Find(&subs).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve subscriptions", err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// GetReportSubscription returns one subscription by ID
func GetReportSubscription(c *gin.Context) {
	db := database.GetDB()
	var sub models.ReportSubscription
	if err := db.First(&sub, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			handleError(c, http.StatusNotFound, "Subscription not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to retrieve subscription", err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// CreateReportSubscription configures a new recurring report
func CreateReportSubscription(c *gin.Context) {
	var req models.CreateReportSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "Asia/Ho_Chi_Minh"
	}
	topLeads := req.TopLeadsCount
	if topLeads == 0 {
		topLeads = 10
	}

	now := time.Now()
	sub := models.ReportSubscription{
		ID:                   uuid.NewString(),
		RecipientEmail:       req.RecipientEmail,
		RecipientName:        req.RecipientName,
		Frequency:            req.Frequency,
		DayOfWeek:            req.DayOfWeek,
		DayOfMonth:           req.DayOfMonth,
		TriggerHour:          req.TriggerHour,
		TriggerMinute:        req.TriggerMinute,
		Timezone:             timezone,
		Enabled:              boolOrDefault(req.Enabled, true),
		IncludeStats:         boolOrDefault(req.IncludeStats, true),
		IncludeNewLeads:      boolOrDefault(req.IncludeNewLeads, true),
		IncludeEmailActivity: boolOrDefault(req.IncludeEmailActivity, true),
		IncludeTopLeads:      boolOrDefault(req.IncludeTopLeads, true),
		TopLeadsCount:        topLeads,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := sub.Validate(); err != nil {
		handleError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	db := database.GetDB()
	if err := db.Create(&sub).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create subscription", err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// UpdateReportSubscription applies partial updates and re-validates the
// resulting configuration as a whole
func UpdateReportSubscription(c *gin.Context) {
	var req models.UpdateReportSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	var sub models.ReportSubscription
	if err := db.First(&sub, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			handleError(c, http.StatusNotFound, "Subscription not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to retrieve subscription", err)
		return
	}

	if req.RecipientEmail != nil {
		sub.RecipientEmail = *req.RecipientEmail
	}
	if req.RecipientName != nil {
		sub.RecipientName = *req.RecipientName
	}
	if req.Frequency != nil {
		sub.Frequency = *req.Frequency
	}
	if req.DayOfWeek != nil {
		sub.DayOfWeek = req.DayOfWeek
	}
	if req.DayOfMonth != nil {
		sub.DayOfMonth = req.DayOfMonth
	}
	if req.TriggerHour != nil {
		sub.TriggerHour = *req.TriggerHour
	}
	if req.TriggerMinute != nil {
		sub.TriggerMinute = *req.TriggerMinute
	}
	if req.Timezone != nil {
		sub.Timezone = *req.Timezone
	}
	if req.Enabled != nil {
		sub.Enabled = *req.Enabled
	}
	if req.IncludeStats != nil {
		sub.IncludeStats = *req.IncludeStats
	}
	if req.IncludeNewLeads != nil {
		sub.IncludeNewLeads = *req.IncludeNewLeads
	}
	if req.IncludeEmailActivity != nil {
		sub.IncludeEmailActivity = *req.IncludeEmailActivity
	}
	if req.IncludeTopLeads != nil {
		sub.IncludeTopLeads = *req.IncludeTopLeads
	}
	if req.TopLeadsCount != nil {
		sub.TopLeadsCount = *req.TopLeadsCount
	}
	sub.UpdatedAt = time.Now()

	if err := sub.Validate(); err != nil {
		handleError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	if err := db.Save(&sub).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update subscription", err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// DeleteReportSubscription removes a subscription. Its delivery history
// is kept for auditing.
func DeleteReportSubscription(c *gin.Context) {
	db := database.GetDB()
	result := db.Delete(&models.ReportSubscription{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete subscription", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscription deleted"})
}

// SendReportNow builds and sends one subscription's report immediately,
// ignoring its schedule
func SendReportNow(c *gin.Context) {
	if reportScheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Report scheduler is not running"})
		return
	}
	if err := reportScheduler.SendNow(c.Param("id")); err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to send report", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report sent"})
}

// TriggerReportCheck runs one scheduling pass immediately, sending
// whatever is due right now
func TriggerReportCheck(c *gin.Context) {
	if reportScheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Report scheduler is not running"})
		return
	}
	sent := reportScheduler.RunNow()
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

// ListReportDeliveries returns the delivery audit log, newest first
func ListReportDeliveries(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	db := database.GetDB()
	query := db.Model(&models.ReportDelivery{})
	if subID := c.Query("subscription_id"); subID != "" {
		query = query.Where("subscription_id = ?", subID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var deliveries []models.ReportDelivery
	if err := query.Order("sent_at DESC").Limit(limit).Find(&deliveries).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve deliveries", err)
		return
	}
	c.JSON(http.StatusOK, deliveries)
}
