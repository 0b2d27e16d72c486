package handlers

import (
	"github.com/gin-gonic/gin"
)

// Error bodies carry a "detail" string; clients surface it verbatim.
func RespondError(c *gin.Context, status int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, gin.H{"detail": msg})
}

func RespondDetail(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}
