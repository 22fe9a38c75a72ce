package middleware

import (
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DomainWhitelistMiddleware rejects requests whose Host is not listed. The
// port is ignored when the entry has none. An empty list allows every host.
func DomainWhitelistMiddleware(allowedDomains []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(allowedDomains) == 0 {
			c.Next()
			return
		}

		host := c.Request.Host
		bare := host
		if h, _, err := net.SplitHostPort(host); err == nil {
			bare = h
		}

		for _, domain := range allowedDomains {
			if strings.EqualFold(domain, host) || strings.EqualFold(domain, bare) {
				c.Next()
				return
			}
		}

		log.Printf("Rejected request for host %q", host)
		c.AbortWithStatusJSON(http.StatusForbidden, Message{
			Status: "Request Failed",
			Body:   "Permission denied",
		})
	}
}
