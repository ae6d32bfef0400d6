// util/http_util.go
package util

import (
	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

// RespondWithDenial returns a structured policy denial. Denials are expected
// outcomes: logged at info level, never as internal errors.
func RespondWithDenial(c *gin.Context, code int, denialReason string) {
	logger.Info("Request denied",
		zap.String("denialReason", denialReason),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": "access denied", "denialReason": denialReason})
}
