package handlers

import (
	"net/http"
	"strings"
	"time"

	"leadcrm/internal/database"
	"leadcrm/internal/models"
	"leadcrm/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetCurrentUser returns the signed-in user's profile
func GetCurrentUser(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	db := database.GetDB()
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve profile", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers returns all provisioned CRM users
func ListUsers(c *gin.Context) {
	db := database.GetDB()
	var users []models.User
	if err := db.Order("created_at ASC").Find(&users).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser provisions a CRM user. Director only.
func CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	now := time.Now()
	user := models.User{
		Username:  req.Username,
		Name:      req.Name,
		Email:     strings.ToLower(req.Email),
		Role:      req.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	db := database.GetDB()
	if err := db.Create(&user).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			if strings.Contains(err.Error(), "email") {
				handleError(c, http.StatusConflict, "Email already in use", err)
			} else {
				handleError(c, http.StatusConflict, "Username already exists", err)
			}
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUser updates a provisioned user. Director only.
func UpdateUser(c *gin.Context) {
	username := c.Param("username")

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			handleError(c, http.StatusNotFound, "User not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(*req.Email)
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			handleError(c, http.StatusConflict, "Email already in use", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to update user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser removes a provisioned user and their sessions. Director only.
func DeleteUser(c *gin.Context) {
	username := c.Param("username")

	if username == c.GetString("username") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	db := database.GetDB()
	result := db.Where("username = ?", username).Delete(&models.User{})
	if result.Error != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete user", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	db.Where("username = ?", username).Delete(&models.Session{})

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// UploadAvatar stores a new avatar image for the signed-in user
func UploadAvatar(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		handleError(c, http.StatusBadRequest, "No avatar file provided", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		handleError(c, http.StatusBadRequest, "Failed to read avatar file", err)
		return
	}
	defer file.Close()

	imageService, err := services.NewImageService()
	if err != nil {
		handleError(c, http.StatusServiceUnavailable, "Image uploads are not configured", err)
		return
	}

	if err := imageService.ValidateImageFile(file, 5*1024*1024); err != nil {
		handleError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	url, err := imageService.UploadAvatar(file, fileHeader.Filename, username)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to upload avatar", err)
		return
	}

	db := database.GetDB()
	if err := db.Model(&models.User{}).Where("username = ?", username).
		Update("avatar_url", url).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to save avatar", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": url})
}
