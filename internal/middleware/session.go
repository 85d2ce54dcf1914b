package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wayfarerhq/wayfarer/internal/chat"
)

const ContextSessionIDKey = "session_id"

// Session resolves the caller's conversation session from the cookie,
// minting a fresh one when the cookie is absent or no longer known.
// The cookie is re-issued on every request so its lifetime slides with
// activity, matching the manager's idle expiry.
func Session(manager *chat.SessionManager, cookieName string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var current string
		if cookie, err := c.Cookie(cookieName); err == nil {
			current = cookie
		}
		id, _ := manager.GetOrCreate(current)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, id, int(ttl/time.Second), "/", "", false, true)
		c.Set(ContextSessionIDKey, id)
		c.Next()
	}
}

// SessionID returns the session id stamped by Session, or "".
func SessionID(c *gin.Context) string {
	value, _ := c.Get(ContextSessionIDKey)
	id, _ := value.(string)
	return id
}
