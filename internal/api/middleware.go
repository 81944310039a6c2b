// middleware.go - CORS setup for browser clients.

package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig builds the CORS policy from a comma separated origin list ("*" allows any origin)
func CORSConfig(allowedOrigins string) cors.Config {
	config := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       24 * time.Hour,
	}

	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			config.AllowAllOrigins = true
			return config
		}
		if origin != "" {
			origins = append(origins, origin)
		}
	}

	if len(origins) == 0 {
		config.AllowAllOrigins = true
		return config
	}
	config.AllowOrigins = origins
	return config
}

// CORSMiddleware returns the gin handler for CORSConfig
func CORSMiddleware(allowedOrigins string) gin.HandlerFunc {
	return cors.New(CORSConfig(allowedOrigins))
}
