package httptransport

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HostAllowed reports whether a Host header may reach the dev server.
// "*" allows everything, an entry starting with "." also matches its
// subdomains, and localhost or literal IPs are always accepted.
func HostAllowed(allowed []string, hostHeader string) bool {
	host := strings.ToLower(hostHeader)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "" {
		return false
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || net.ParseIP(host) != nil {
		return true
	}

	for _, entry := range allowed {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "*":
			return true
		case strings.HasPrefix(entry, "."):
			if host == entry[1:] || strings.HasSuffix(host, entry) {
				return true
			}
		case entry == host:
			return true
		}
	}
	return false
}

func allowedHostsMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if HostAllowed(allowed, c.Request.Host) {
			c.Next()
			return
		}
		RespondError(c, http.StatusForbidden, "blocked request: host "+c.Request.Host+" is not allowed", nil)
		c.Abort()
	}
}
