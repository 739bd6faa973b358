package auth

// UserInfo represents the identity returned by Google's sign-in flow
type UserInfo struct {
	Sub           string `json:"sub"`            // Unique Google ID
	Email         string `json:"email"`          // User's email
	EmailVerified bool   `json:"email_verified"` // Whether the email is verified
	Name          string `json:"name"`           // Full name
	Picture       string `json:"picture"`        // Profile picture URL
}
