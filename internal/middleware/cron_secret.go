package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CronSecret защищает cron-эндпоинты общим секретом Authorization: Bearer {secret}.
// Пустой секрет отключает проверку.
func CronSecret(secret string) gin.HandlerFunc {
	if secret == "" {
		log.Printf("[CronSecret] Cron secret is not configured, cron endpoints are open")
	}
	expected := []byte(secret)

	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok || subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			log.Printf("[CronSecret] Unauthorized cron request to %s from %s", c.Request.URL.Path, c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
