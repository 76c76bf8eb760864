// Package response shapes every API reply into the shared frame envelope.
// Handlers never write JSON directly; they go through Success or Error so the
// code/message/data layout stays uniform across the surface.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

// apiError satisfies the proxyutil coded-error contract so the business code
// lands in the envelope's code field instead of the HTTP status line.
type apiError struct {
	code    uint32
	message string
}

func (e apiError) Error() string { return e.message }
func (e apiError) Code() uint32  { return e.code }

// Success writes data inside the standard envelope with a zero code.
func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error writes a failure envelope. The HTTP status stays 200; clients branch
// on the envelope code.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, http.StatusOK, apiError{code: uint32(code), message: message})
}
