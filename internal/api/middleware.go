package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/omars-lab/knowledge-agents/internal/requestid"
)

// requestIDMiddleware attaches a fresh request ID and a bound log entry to
// the request context so every handler and downstream call can log with it.
func requestIDMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestid.New()
		ctx := requestid.WithID(c.Request.Context(), id, log)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}
