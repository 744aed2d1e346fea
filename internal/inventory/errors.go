package inventory

import (
	"fmt"
	"net/http"
	"strings"

	"intranet-lending/internal/domain"
)

// HTTPError is a non-2xx response from the inventory API. Body holds the raw
// response for operators and is never shown to end users.
type HTTPError struct {
	Status   int
	Method   string
	Endpoint string
	Body     string
	Hint     string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("inventory API %s %s returned %d: %s", e.Method, e.Endpoint, e.Status, truncate(e.Body, 512))
	if e.Hint != "" {
		msg += " (hint: " + e.Hint + ")"
	}
	return msg
}

// HTTPStatus lets callers outside this package recognise a remote rejection.
func (e *HTTPError) HTTPStatus() int {
	return e.Status
}

func (e *HTTPError) ErrorKind() domain.ErrorKind {
	if e.Status == http.StatusNotFound {
		return domain.KindNotFound
	}
	return domain.KindHTTP
}

// scopeHint explains a 403 by the endpoint family that was called.
func scopeHint(endpoint string) string {
	path := endpoint
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	switch {
	case strings.Contains(path, "/contact-details"):
		return "the API token is probably missing the address book scope (contact-details read)"
	case strings.Contains(path, "/custom-fields"):
		return "the API token is probably missing the custom field scope (inventory-object custom-fields read/write)"
	case strings.Contains(path, "/lending"):
		return "the API token is probably missing the lending scope (lending read/write)"
	case strings.Contains(path, "/refresh-token"):
		return "the API token may not be allowed to refresh itself"
	case strings.Contains(path, "/inventory-object"):
		return "the API token is probably missing the inventory object scope"
	}
	return "the API token lacks permission for this endpoint"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
