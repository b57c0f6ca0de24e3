package router

import (
	"time"

	"secom/controllers"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const REQUEST_ID_HEADER = "X-Request-ID"

// Logger registra método, rota, status e latência, com um request id por requisição.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(REQUEST_ID_HEADER)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(REQUEST_ID_HEADER, requestID)

		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"ip":         c.ClientIP(),
		})
		if user, ok := controllers.GetUserLogged(c); ok {
			entry = entry.WithField("user_id", user.ID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
