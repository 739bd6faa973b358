package handlers

import (
	"context"
	"net/http"

	"leadcrm/internal/database"
	"leadcrm/internal/models"
	"leadcrm/internal/services"

	"github.com/gin-gonic/gin"
)

// EnrichLead runs AI research for one lead and fills missing contact fields
func EnrichLead(c *gin.Context) {
	enrich := services.NewEnrichService()
	result, err := enrich.EnrichLead(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, http.StatusBadGateway, "Lead enrichment failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ScoreLead computes and stores an AI quality score for one lead
func ScoreLead(c *gin.Context) {
	enrich := services.NewEnrichService()
	result, err := enrich.ScoreLead(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, http.StatusBadGateway, "Lead scoring failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// leadScorer scores a single lead. Satisfied by EnrichService.
type leadScorer interface {
	ScoreLead(ctx context.Context, leadID string) (*services.ScoringResult, error)
}

// BatchScoreRequest selects the leads to score in one pass
type BatchScoreRequest struct {
	LeadIDs []string `json:"lead_ids" binding:"required,min=1"`
}

// BatchScoreResult reports the outcome of one lead in a batch scoring run
type BatchScoreResult struct {
	LeadID string                  `json:"lead_id"`
	Score  *services.ScoringResult `json:"score,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// scoreLeadsBatch scores each lead in turn. One failing lead does not
// stop the batch; its error is reported alongside the successes.
func scoreLeadsBatch(ctx context.Context, scorer leadScorer, leadIDs []string) (int, []BatchScoreResult) {
	results := make([]BatchScoreResult, 0, len(leadIDs))
	scored := 0
	for _, leadID := range leadIDs {
		result, err := scorer.ScoreLead(ctx, leadID)
		if err != nil {
			results = append(results, BatchScoreResult{LeadID: leadID, Error: err.Error()})
			continue
		}
		results = append(results, BatchScoreResult{LeadID: leadID, Score: result})
		scored++
	}
	return scored, results
}

// ScoreLeadsBatch computes and stores AI quality scores for a set of leads
func ScoreLeadsBatch(c *gin.Context) {
	var req BatchScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	enrich := services.NewEnrichService()
	scored, results := scoreLeadsBatch(c.Request.Context(), enrich, req.LeadIDs)
	c.JSON(http.StatusOK, gin.H{
		"scored":  scored,
		"total":   len(req.LeadIDs),
		"results": results,
	})
}

// DraftEmailRequest asks the AI to draft an outreach email for a lead
type DraftEmailRequest struct {
	TemplateBody string `json:"template_body"`
	Instructions string `json:"instructions"`
}

// DraftEmail generates an outreach email body for a lead
func DraftEmail(c *gin.Context) {
	var req DraftEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	enrich := services.NewEnrichService()
	body, err := enrich.DraftEmail(c.Request.Context(), c.Param("id"), req.TemplateBody, req.Instructions)
	if err != nil {
		handleError(c, http.StatusBadGateway, "Email drafting failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"body": body})
}

// ChatRequest is a free-form question about the lead database
type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

// Chat answers questions using the lead database and the caller's
// stored conversation as context
func Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	enrich := services.NewEnrichService()
	answer, err := enrich.Chat(c.Request.Context(), c.GetString("username"), req.Question)
	if err != nil {
		handleError(c, http.StatusBadGateway, "Chat failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// ChatHistory returns the caller's conversation with the assistant,
// oldest first
func ChatHistory(c *gin.Context) {
	db := database.GetDB()
	messages := []models.ChatMessage{}
	if err := db.Where("username = ?", c.GetString("username")).
		Order("created_at ASC").Find(&messages).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve chat history", err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// ClearChatHistory deletes the caller's conversation with the assistant
func ClearChatHistory(c *gin.Context) {
	db := database.GetDB()
	if err := db.Where("username = ?", c.GetString("username")).
		Delete(&models.ChatMessage{}).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to clear chat history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared"})
}
