package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// errorMapping associates a sentinel error with the HTTP response sent for it.
type errorMapping struct {
	sentinel error
	status   int
	message  string
}

// respondMapped writes the response for the first mapping whose sentinel
// matches err. Unmatched errors get the fallback status and message.
func respondMapped(c *gin.Context, err error, mappings []errorMapping, fallbackStatus int, fallbackMessage string) {
	status, message := fallbackStatus, fallbackMessage
	for _, m := range mappings {
		if m.sentinel != nil && errors.Is(err, m.sentinel) {
			status, message = m.status, m.message
			break
		}
	}
	c.JSON(status, NewErrorResponse(c, message))
}
