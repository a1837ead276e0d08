package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	icommon "github.com/hxuan190/quote-engine/internal/common"
)

// Response is the envelope every API endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}

func BadRequest(c *gin.Context, msg string) {
	Fail(c, http.StatusBadRequest, msg)
}

func NotFound(c *gin.Context, msg string) {
	Fail(c, http.StatusNotFound, msg)
}

func InternalError(c *gin.Context, msg string) {
	Fail(c, http.StatusInternalServerError, msg)
}

// HandleError writes the status carried by an HttpError; anything else
// maps to 500.
func HandleError(c *gin.Context, err error) {
	var httpErr *icommon.HttpError
	if errors.As(err, &httpErr) {
		Fail(c, httpErr.StatusCode, httpErr.Message)
		return
	}
	InternalError(c, err.Error())
}
