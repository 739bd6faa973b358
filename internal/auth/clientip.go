package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// clientIP resolves the address recorded on login sessions. The nginx
// in front of the API sets X-Real-IP; X-Forwarded-For covers other
// proxy chains, where the first hop is the original caller.
func clientIP(c *gin.Context) string {
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return c.ClientIP()
}
