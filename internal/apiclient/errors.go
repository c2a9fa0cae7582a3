package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"noor-storefront/internal/domain"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 << 10

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status=%d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, domain.ErrNotFound) match a 404.
func (e *APIError) Is(target error) bool {
	return target == domain.ErrNotFound && e.Status == http.StatusNotFound
}

// ErrorFromResponse consumes and closes resp's body and returns an *APIError.
// fallback is used when the body carries no recognisable message.
func ErrorFromResponse(resp *http.Response, fallback string) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := ExtractMessage(body)
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = strings.ToLower(http.StatusText(resp.StatusCode))
	}
	return &APIError{Status: resp.StatusCode, Message: msg, Body: body}
}

// DecodeJSON decodes a 2xx body into v and closes it. Other statuses yield an *APIError.
func DecodeJSON(resp *http.Response, v any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ErrorFromResponse(resp, "")
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ExtractMessage finds a human readable message in an API error body. It looks
// at detail (string or {message}), error, message, then the first field error
// list in key order.
func ExtractMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}

	if raw, ok := fields["detail"]; ok {
		if s := asString(raw); s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	for _, key := range []string{"error", "message"} {
		if s := asString(fields[key]); s != "" {
			return s
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var list []string
		if err := json.Unmarshal(fields[k], &list); err != nil || len(list) == 0 || list[0] == "" {
			continue
		}
		if k == "non_field_errors" {
			return list[0]
		}
		return k + ": " + list[0]
	}
	return ""
}

func asString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
