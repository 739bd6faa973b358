package auth

import (
	"context"
	"fmt"
	"leadcrm/internal/database"
	"leadcrm/internal/models"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

var (
	googleOAuthConfig *oauth2.Config
)

// InitOAuth initializes the Google OAuth configuration
func InitOAuth() error {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	redirectURL := os.Getenv("GOOGLE_REDIRECT_URL")

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, and GOOGLE_REDIRECT_URL must be set")
	}

	googleOAuthConfig = &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile", "openid"},
		Endpoint:     google.Endpoint,
	}

	return nil
}

// GetLoginURL returns the Google OAuth login URL with a secure state parameter
func GetLoginURL(c *gin.Context) (string, error) {
	// Generate and store a secure random state
	state, err := SetOAuthState(c)
	if err != nil {
		return "", err
	}

	return googleOAuthConfig.AuthCodeURL(state,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	), nil
}

// HandleGoogleCallback processes the OAuth callback from Google. Only
// pre-provisioned users (matched by email) may sign in; there is no
// self-registration in the CRM.
func HandleGoogleCallback(c *gin.Context) {
	// Verify state parameter (CSRF protection)
	state := c.Query("state")
	if !VerifyOAuthState(c, state) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state, possible CSRF attack"})
		c.Abort()
		return
	}

	// Exchange auth code for token
	code := c.Query("code")
	token, err := googleOAuthConfig.Exchange(context.Background(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "code exchange failed"})
		c.Abort()
		return
	}

	// Extract ID token from the token response
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get id_token"})
		c.Abort()
		return
	}

	// Verify the ID token
	payload, err := verifyIDToken(rawIDToken, googleOAuthConfig.ClientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to verify id_token: %v", err)})
		c.Abort()
		return
	}

	// Extract user info from the verified payload
	userInfo, err := extractUserInfoFromPayload(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to extract user info from token"})
		c.Abort()
		return
	}

	// Match the Google identity to a provisioned CRM user by email
	db := database.GetDB()
	var user models.User
	if err := db.Where("email = ?", userInfo.Email).First(&user).Error; err != nil {
		log.Printf("Login rejected for unprovisioned email %s", userInfo.Email)
		c.JSON(http.StatusForbidden, gin.H{"error": "no CRM account for this email, ask a Director to add you"})
		c.Abort()
		return
	}

	// Keep the avatar fresh from Google if the user has none set
	updates := map[string]interface{}{"last_login": time.Now()}
	if user.AvatarURL == "" && userInfo.Picture != "" {
		updates["avatar_url"] = userInfo.Picture
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		log.Printf("Warning: failed to update last login for %s: %v", user.Username, err)
	}

	if err := CreateSession(c, &user, clientIP(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		c.Abort()
		return
	}

	log.Printf("User %s logged in from %s", user.Username, clientIP(c))
	c.Redirect(http.StatusTemporaryRedirect, "/")
}

// verifyIDToken verifies the ID token using Google's official library
func verifyIDToken(idToken string, audience string) (*idtoken.Payload, error) {
	payload, err := idtoken.Validate(context.Background(), idToken, audience)
	if err != nil {
		return nil, fmt.Errorf("failed to validate ID token: %w", err)
	}
	return payload, nil
}

// extractUserInfoFromPayload extracts user info from the verified token payload
func extractUserInfoFromPayload(payload *idtoken.Payload) (*UserInfo, error) {
	email, ok := payload.Claims["email"].(string)
	if !ok || email == "" {
		return nil, fmt.Errorf("id token payload has no email claim")
	}

	userInfo := &UserInfo{
		Sub:   payload.Subject,
		Email: email,
	}

	if name, ok := payload.Claims["name"].(string); ok {
		userInfo.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		userInfo.Picture = picture
	}
	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok {
		userInfo.EmailVerified = emailVerified
	}

	return userInfo, nil
}

// AuthMiddleware validates the session and loads the user's role into the
// request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := GetSession(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		if session.IsExpired() {
			DeleteSession(c)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired, please log in again"})
			c.Abort()
			return
		}

		db := database.GetDB()
		var user models.User
		if err := db.Where("username = ?", session.Username).First(&user).Error; err != nil {
			// The user was deleted after the session was issued
			DeleteSession(c)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
			c.Abort()
			return
		}

		c.Set("username", user.Username)
		c.Set("email", user.Email)
		c.Set("role", string(user.Role))

		c.Next()
	}
}

// RequireRole aborts the request unless the authenticated user has the
// given role. Must run after AuthMiddleware.
func RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != string(role) {
			c.JSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("%s role required", role)})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUsernameFromContext returns the authenticated username, or "" if none
func GetUsernameFromContext(c *gin.Context) string {
	return c.GetString("username")
}
