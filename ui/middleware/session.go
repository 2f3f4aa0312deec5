package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"learnerdash/domain/core"
)

// CookieName is the cookie that carries the dashboard session ID
const CookieName = "learnerdash_session"

const sessionKey = "sessionID"

// EnsureSession is middleware that gives every browser a session ID. A
// missing or malformed cookie is replaced with a fresh ID. The cookie is
// reissued on every request so its lifetime slides with the session's.
func EnsureSession(maxAge int, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id core.SessionID
		if raw, err := c.Cookie(CookieName); err == nil {
			if parsed, err := core.ParseSessionID(raw); err == nil {
				id = parsed
			} else {
				log.Printf("[EnsureSession] Discarding malformed session cookie: %v", err)
			}
		}
		if id == "" {
			id = core.NewSessionID()
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, id.String(), maxAge, "/", "", secure, true)
		c.Set(sessionKey, id)
		c.Next()
	}
}

// SessionID returns the ID set by EnsureSession
func SessionID(c *gin.Context) core.SessionID {
	if v, ok := c.Get(sessionKey); ok {
		if id, ok := v.(core.SessionID); ok {
			return id
		}
	}
	return ""
}
