package response

import (
	"net/http"

	appErrors "github.com/charlesng35/taskhub/pkg/errors"
	"github.com/gin-gonic/gin"
)

// Response defines the base API payload.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CursorPage is the flat envelope used by keyset-paginated feeds.
type CursorPage struct {
	Data                interface{} `json:"data"`
	NextCursor          *string     `json:"nextCursor"`
	NextCursorSortOrder *int64      `json:"nextCursorSortOrder"`
	HasNextPage         bool        `json:"hasNextPage"`
	Total               *int64      `json:"total,omitempty"`
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// Page writes a cursor page. Data is rendered as an empty array rather than null.
func Page(c *gin.Context, page CursorPage) {
	if page.Data == nil {
		page.Data = []struct{}{}
	}
	c.JSON(http.StatusOK, page)
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}
