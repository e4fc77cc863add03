package auth

import "github.com/gin-gonic/gin"

const (
	ctxKeyUserID    = "userID"
	ctxKeyUserEmail = "userEmail"
	ctxKeyUserRole  = "userRole"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxKeyUserID)
}

// GetUserEmail returns the authenticated user's email or empty string.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(ctxKeyUserEmail)
}

// GetUserRole returns the role carried by the access token. Authorization
// decisions re-read the role from storage; this is for logging only.
func GetUserRole(c *gin.Context) string {
	return c.GetString(ctxKeyUserRole)
}

// SetIdentity stores the authenticated identity on the request context.
func SetIdentity(c *gin.Context, userID, email, role string) {
	c.Set(ctxKeyUserID, userID)
	c.Set(ctxKeyUserEmail, email)
	c.Set(ctxKeyUserRole, role)
}
