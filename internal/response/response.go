package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// EchoBody is the legacy plain-text reply for "hi" test messages. The
// leading and trailing spaces are part of the contract.
const EchoBody = " hello "

// ErrorCode sends the standard error envelope {success:false, error:CODE}.
func ErrorCode(c *gin.Context, statusCode int, code string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   code,
	})
}

// Internal sends the generic unexpected-error envelope. Stack traces never
// reach the client; only the extracted message does.
func Internal(c *gin.Context, errMessage string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "Internal server error",
		"error":   errMessage,
	})
}

// Echo sends the fixed plain-text echo reply.
func Echo(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain", []byte(EchoBody))
}
