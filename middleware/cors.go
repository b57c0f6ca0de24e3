package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware libera CORS para o front.
// allowed é uma lista separada por vírgula; vazia (ou "*") libera qualquer origem.
func CORSMiddleware(allowed string) gin.HandlerFunc {
	origins := parseOrigins(allowed)

	return func(c *gin.Context) {
		header := c.Writer.Header()
		origin := c.Request.Header.Get("Origin")

		switch {
		case origins == nil:
			header.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && origins[strings.ToLower(origin)]:
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Add("Vary", "Origin")
		}
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Application-Version, X-Request-ID")
		header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		header.Set("Access-Control-Expose-Headers", "X-Request-ID, X-Cache, Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func parseOrigins(allowed string) map[string]bool {
	allowed = strings.TrimSpace(allowed)
	if allowed == "" || allowed == "*" {
		return nil
	}
	out := map[string]bool{}
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out[strings.ToLower(o)] = true
		}
	}
	return out
}
