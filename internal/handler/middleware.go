package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"moodmate/internal/model"
)

// BearerAuth rejects requests without a bearer token. When token is non-empty
// the bearer must equal it.
func BearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		bearer, found := strings.CutPrefix(header, "Bearer ")
		bearer = strings.TrimSpace(bearer)

		if !found || bearer == "" || (token != "" && bearer != token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.Envelope[any]{Message: "unauthorized"})
			return
		}
		c.Next()
	}
}
