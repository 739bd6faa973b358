package handlers

import (
	"net/http"
	"strconv"

	"leadcrm/internal/database"
	"leadcrm/internal/models"
	"leadcrm/internal/services"

	"github.com/gin-gonic/gin"
)

// ListEmailReplies returns inbound replies, optionally filtered by lead
func ListEmailReplies(c *gin.Context) {
	db := database.GetDB()
	query := db.Model(&models.EmailReply{})
	if leadID := c.Query("lead_id"); leadID != "" {
		query = query.Where("lead_id = ?", leadID)
	}

	var replies []models.EmailReply
	if err := query.Order("reply_date DESC").Find(&replies).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve replies", err)
		return
	}
	c.JSON(http.StatusOK, replies)
}

// DeleteEmailReply removes one reply record
func DeleteEmailReply(c *gin.Context) {
	db := database.GetDB()
	result := db.Delete(&models.EmailReply{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete reply", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reply not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reply deleted"})
}

// CheckInbox polls the IMAP inbox for new replies to sent emails
func CheckInbox(c *gin.Context) {
	maxEmails := 50
	if raw := c.Query("max"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			maxEmails = n
		}
	}

	checker := services.NewReplyChecker()
	saved, err := checker.CheckInbox(maxEmails)
	if err != nil {
		handleError(c, http.StatusBadGateway, "Inbox check failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"new_replies": saved})
}
