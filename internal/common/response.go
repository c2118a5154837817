package common

import "github.com/gin-gonic/gin"

func OK(c *gin.Context, status int, data gin.H) {
	c.JSON(status, data)
}

// Fail renders the flat {"error": ...} contract shared by the CLI and the
// HTTP API.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
