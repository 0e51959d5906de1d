package middleware

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderClientID optionally identifies the calling client (a browser
// install, a CLI, a test). There are no user accounts; the value only keys
// rate-limit buckets and idempotency records.
const HeaderClientID = "X-Client-ID"

const ctxKeyClientID = "clientID"

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]{1,64}$`)

// ClientID returns the caller identity for this request: "client:<id>" from
// X-Client-ID when it is a well-formed token, otherwise "ip:<addr>". The
// result is cached in the Gin context.
func ClientID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyClientID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	id := "ip:" + c.ClientIP()
	if c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader(HeaderClientID)); clientIDPattern.MatchString(h) {
			id = "client:" + h
		}
	}
	c.Set(ctxKeyClientID, id)
	return id
}
