package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized covers both 401 and 403: the session is gone either way.
	ErrUnauthorized   = errors.New("authentication required")
	ErrNotFound       = errors.New("resource not found")
	ErrStockConflict  = errors.New("requested quantity exceeds available stock")
	ErrUnavailable    = errors.New("backend unavailable")
	ErrMalformedReply = errors.New("malformed backend response")
)

// APIError is a non-2xx reply from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrStockConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	}
	return nil
}

// parseAPIError extracts the human readable cause from the usual backend
// error bodies: {"error": ...}, {"detail": ...}, {"mensaje": ...} or a
// field → messages map.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200]
		}
		return apiErr
	}

	for _, key := range []string{"error", "detail", "mensaje", "message"} {
		if v, ok := payload[key].(string); ok && v != "" {
			apiErr.Message = v
			return apiErr
		}
	}

	var parts []string
	for field, v := range payload {
		switch msgs := v.(type) {
		case []any:
			for _, m := range msgs {
				parts = append(parts, fmt.Sprintf("%s: %v", field, m))
			}
		case string:
			parts = append(parts, fmt.Sprintf("%s: %s", field, msgs))
		}
	}
	apiErr.Message = strings.Join(parts, "; ")
	return apiErr
}
