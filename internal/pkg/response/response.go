package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Accepted is used by endpoints that start background work and return
// before it completes.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}

func Error(c *gin.Context, status int, code int, message string) {
	c.JSON(status, errorBody{Code: code, Message: message})
}
