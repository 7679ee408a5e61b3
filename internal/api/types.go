package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"time"
)

// Errors
var (
	ErrNilHandler    = errors.New("result handler is nil")
	ErrNotJSON       = errors.New("response content is not json")
	ErrMalformedJSON = errors.New("response body is not valid json")
)

// Handler receives results. It is always invoked from the callback pool,
// never from a goroutine that drives network I/O.
type Handler func(Result)

// Result is a single response (REST) or message (WebSocket).
type Result struct {
	JSON       json.RawMessage // Raw document; nil when Err is set before a body was read
	Err        error           // Transport, content or parse failure
	StatusCode int             // HTTP status (REST only)
	Stream     string          // Stream name (WebSocket only)
	ReceivedAt time.Time       // Local timestamp when the body or frame was read
}

// ExchangeError is an error document reported by the exchange, e.g.
// {"code":-1121,"msg":"Invalid symbol."}.
type ExchangeError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("binance error %d: %s", e.Code, e.Msg)
}

// Failed reports whether the result carries a local error.
func (r Result) Failed() bool {
	return r.Err != nil
}

// HasErrorCode reports whether the document is an object with a "code" field.
func (r Result) HasErrorCode() bool {
	_, ok := r.ExchangeError()
	return ok
}

// ExchangeError extracts the exchange error document, if any.
func (r Result) ExchangeError() (*ExchangeError, bool) {
	return DecodeExchangeError(r.JSON)
}

// Decode unmarshals the document into v.
func (r Result) Decode(v any) error {
	if r.Err != nil {
		return r.Err
	}
	if err := json.Unmarshal(r.JSON, v); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

// DecodeExchangeError returns the error document in body when body is a JSON
// object containing a "code" field.
func DecodeExchangeError(body []byte) (*ExchangeError, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, false
	}
	if _, ok := fields["code"]; !ok {
		return nil, false
	}

	var e ExchangeError
	// Non-numeric codes still count as errors; Code stays zero.
	json.Unmarshal(body, &e)
	return &e, true
}

// ParseBody validates that a response is JSON by content type and syntax.
func ParseBody(contentType string, body []byte) (json.RawMessage, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return nil, fmt.Errorf("%w: content-type %q", ErrNotJSON, contentType)
	}
	if !json.Valid(body) {
		return nil, ErrMalformedJSON
	}
	return json.RawMessage(body), nil
}
