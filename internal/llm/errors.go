package llm

import (
	"errors"
	"net"
	"net/url"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mindorah/interviewd/internal/reliability"
)

// ErrNoStructuredData means the model declined to call the required tool.
var ErrNoStructuredData = errors.New("model did not return structured data")

// IsContentFiltered reports whether the provider rejected the request under
// its content policy. Never retried.
func IsContentFiltered(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok && code == "content_filter" {
			return true
		}
	}
	return strings.Contains(err.Error(), "content_filter")
}

// IsTransport reports whether the failure was a network or upstream
// availability problem rather than a request defect.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return reliability.IsRetryableHTTPStatus(apiErr.HTTPStatusCode)
	}
	return strings.Contains(strings.ToLower(err.Error()), "network error")
}
