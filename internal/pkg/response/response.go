package response

import (
	stderr "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
)

type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string {
	return e.msg
}

func (e codeErr) Code() uint32 {
	return e.code
}

func AsCodeErr(code uint32, msg string) error {
	return codeErr{code: code, msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

func Error(c *gin.Context, status int, message string) {
	proxyutil.FailJson(c, status, AsCodeErr(uint32(status), message))
}

// Fail maps domain sentinel errors to their HTTP status and a stable reason
// string; anything unrecognized becomes a 500.
func Fail(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case stderr.Is(err, apperr.ErrInvalidRequest):
		Error(c, http.StatusBadRequest, err.Error())
	case stderr.Is(err, apperr.ErrNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case stderr.Is(err, apperr.ErrIngestRunning):
		Error(c, http.StatusConflict, err.Error())
	case stderr.Is(err, apperr.ErrSchemaMismatch):
		Error(c, http.StatusConflict, err.Error())
	case stderr.Is(err, apperr.ErrEmbedding),
		stderr.Is(err, apperr.ErrRetrieval),
		stderr.Is(err, apperr.ErrGeneration):
		Error(c, http.StatusBadGateway, err.Error())
	default:
		Error(c, http.StatusInternalServerError, "internal error")
	}
}
