package notion

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Error codes returned by the Notion API.
const (
	CodeObjectNotFound = "object_not_found"
	CodeUnauthorized   = "unauthorized"
	CodeRateLimited    = "rate_limited"
	CodeValidation     = "validation_error"
)

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("notion api: %d: %s", e.Status, e.Message)
}

// NotFound reports whether the object does not exist or is not shared with
// the integration.
func (e *APIError) NotFound() bool {
	return e.Code == CodeObjectNotFound || e.Status == http.StatusNotFound
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	if gjson.GetBytes(body, "object").String() == "error" {
		e.Code = gjson.GetBytes(body, "code").String()
		e.Message = gjson.GetBytes(body, "message").String()
		return e
	}
	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
