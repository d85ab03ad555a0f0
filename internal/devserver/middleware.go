package devserver

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"terapiahub/internal/auth"
)

const sessionKey = "session"

// sessionMiddleware attaches the bearer token's session to the request when
// one parses. Requests without a usable token pass through unchanged.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			if session, err := auth.ParseSession(parts[1]); err == nil {
				c.Set(sessionKey, session)
			}
		}
		c.Next()
	}
}

// requestLogger logs every request with the caller's client id.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		clientID := c.GetHeader("X-Client-ID")
		if clientID != "" {
			s.mu.Lock()
			s.lastClientID = clientID
			s.mu.Unlock()
		}
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_id", clientID,
		}
		if v, ok := c.Get(sessionKey); ok {
			session := v.(*auth.Session)
			attrs = append(attrs, "user_id", session.UserID, "role", session.Role)
		}
		s.logger.Debug("request", attrs...)
	}
}

// LastClientID is the X-Client-ID of the most recent request that sent one.
func (s *Server) LastClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastClientID
}

