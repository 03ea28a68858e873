package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIPWhitelist(t *testing.T) {
	cases := []struct {
		name    string
		entries []string
		ip      string
		want    int
	}{
		{"empty list allows all", nil, "1.2.3.4", http.StatusOK},
		{"listed address", []string{"10.0.0.1", "10.0.0.2"}, "10.0.0.2", http.StatusOK},
		{"unlisted address", []string{"10.0.0.1", "10.0.0.2"}, "10.0.0.3", http.StatusForbidden},
		{"inside prefix", []string{"192.168.0.0/16"}, "192.168.44.7", http.StatusOK},
		{"outside prefix", []string{"192.168.0.0/16"}, "192.169.0.1", http.StatusForbidden},
		{"unmasked prefix", []string{"10.1.2.3/8"}, "10.200.0.1", http.StatusOK},
		{"ipv6 loopback", []string{"::1"}, "::1", http.StatusOK},
		{"only bad entries deny everyone", []string{"not-an-ip"}, "10.0.0.1", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(IPWhitelist(tc.entries, nil))
			r.GET("/admin/sessions", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/admin/sessions", nil)
			req.Header.Set("X-Real-IP", tc.ip)
			assert.Equal(t, tc.want, serve(r, req))
		})
	}
}

func TestIPWhitelist_WarnsOnBadEntry(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	IPWhitelist([]string{"10.0.0.0/8", "bogus"}, zap.New(core))

	entries := logs.FilterField(zap.String("entry", "bogus")).All()
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, logs.Len())
}
