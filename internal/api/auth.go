package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// bearerAuth extracts the API token from the Authorization header, failing
// the request with 401 on any of the three ways a caller can get it wrong:
// missing header, malformed scheme, or an empty token after "Bearer ".
func bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		if authorization == "" {
			unauthorized(c, "Authorization header is required. Use 'Authorization: Bearer <token>'")
			return
		}

		parts := strings.SplitN(authorization, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'")
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			unauthorized(c, "API token is required")
			return
		}

		c.Set(apiTokenKey, token)
		c.Next()
	}
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}

const apiTokenKey = "api_token"

func apiTokenFrom(c *gin.Context) string {
	token, _ := c.Get(apiTokenKey)
	s, _ := token.(string)
	return s
}
