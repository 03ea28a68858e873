package middleware

import (
	"net/http"
	"net/netip"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IPWhitelist only allows requests from the listed addresses or CIDR
// prefixes. If the list is empty, all IPs are allowed. Unparseable entries
// are logged and ignored.
func IPWhitelist(entries []string, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	var prefixes []netip.Prefix
	for _, e := range entries {
		if p, err := netip.ParsePrefix(e); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		log.Warn("ignoring bad ip whitelist entry", zap.String("entry", e))
	}

	return func(c *gin.Context) {
		if len(entries) == 0 {
			c.Next()
			return
		}
		addr, err := netip.ParseAddr(c.ClientIP())
		if err == nil {
			addr = addr.Unmap()
			for _, p := range prefixes {
				if p.Contains(addr) {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}
