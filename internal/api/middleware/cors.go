package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins  []string
	AllowAllOrigins bool
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// With AllowAllOrigins every origin is accepted and credentials are off;
// otherwise only listed origins are echoed back, with credentials on.
func CORS(config CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "Accept-Encoding", "Authorization", "Cache-Control", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if config.AllowAllOrigins || len(config.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowCredentials = true
		c.AllowOriginFunc = func(origin string) bool {
			return IsOriginAllowed(origin, config)
		}
	}
	return cors.New(c)
}

// IsOriginAllowed checks if an origin is allowed based on the configuration
func IsOriginAllowed(origin string, config CORSConfig) bool {
	if config.AllowAllOrigins {
		return true
	}

	for _, allowedOrigin := range config.AllowedOrigins {
		if allowedOrigin == "*" || strings.EqualFold(origin, allowedOrigin) {
			return true
		}
	}

	return false
}
