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

// TemplateRequest is the payload for creating or updating a template
type TemplateRequest struct {
	Name    string `json:"name" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// ListTemplates returns all email templates
func ListTemplates(c *gin.Context) {
	db := database.GetDB()
	var templates []models.EmailTemplate
	if err := db.Order("created_at ASC").Find(&templates).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve templates", err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// GetTemplate returns one template by ID
func GetTemplate(c *gin.Context) {
	db := database.GetDB()
	var tmpl models.EmailTemplate
	if err := db.First(&tmpl, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			handleError(c, http.StatusNotFound, "Template not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to retrieve template", err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// CreateTemplate adds a new email template
func CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	now := time.Now()
	tmpl := models.EmailTemplate{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	db := database.GetDB()
	if err := db.Create(&tmpl).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create template", err)
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

// UpdateTemplate replaces a template's content
func UpdateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	var tmpl models.EmailTemplate
	if err := db.First(&tmpl, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			handleError(c, http.StatusNotFound, "Template not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to retrieve template", err)
		return
	}

	if err := db.Model(&tmpl).Updates(map[string]interface{}{
		"name":       req.Name,
		"subject":    req.Subject,
		"body":       req.Body,
		"updated_at": time.Now(),
	}).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update template", err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// DeleteTemplate removes a template
func DeleteTemplate(c *gin.Context) {
	db := database.GetDB()
	result := db.Delete(&models.EmailTemplate{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete template", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
}
