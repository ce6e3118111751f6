// Package agent talks to the storefront agent backend and models the
// loosely-typed responses it returns.
package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Action selects the rendering strategy for a response.
type Action string

// Action tags sent by the backend.
const (
	ActionSearch     Action = "search"
	ActionAddToCart  Action = "add_to_cart"
	ActionSummarize  Action = "summarize"
	ActionShowOrders Action = "show_orders"
	ActionCompare    Action = "compare"
	ActionRecommend  Action = "recommend"
	ActionNavigate   Action = "navigate"
	ActionUnknown    Action = "unknown"
)

// Status reports whether the backend handled the command.
type Status string

// Response statuses. The backend sends "success"; synthesized fallbacks
// use "error".
const (
	StatusOK      Status = "success"
	StatusError   Status = "error"
	StatusUnknown Status = ""
)

// FallbackMessage is shown when a command could not be delivered.
const FallbackMessage = "Sorry, I couldn't process that command. Please try again."

// Navigation asks the host to replace the current page.
type Navigation struct {
	Page   string         `json:"page"`
	Params map[string]any `json:"params,omitempty"`
}

// Response is an agent reply. Every field is optional.
type Response struct {
	Navigation  *Navigation     `json:"navigation,omitempty"`
	Message     string          `json:"message,omitempty"`
	Action      Action          `json:"action,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	Suggestions []string        `json:"suggestions,omitempty"`
	Status      Status          `json:"status,omitempty"`

	// Seq is stamped by the Channel when the command is sent. Zero means
	// the response did not come from a Channel.
	Seq uint64 `json:"-"`
}

// HasData reports whether the response carries a non-null data payload.
func (r *Response) HasData() bool {
	d := bytes.TrimSpace(r.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// Fallback builds the response handed to the dispatcher when the backend
// could not be reached.
func Fallback() *Response {
	return &Response{
		Action:  ActionUnknown,
		Message: FallbackMessage,
		Status:  StatusError,
	}
}

// DecodeResponse parses a response document field by field. A field with
// an unexpected type is dropped instead of failing the whole document;
// unknown fields are ignored. Only a body that is not a JSON object is an
// error.
func DecodeResponse(body []byte) (*Response, error) {
	obj, ok := parseObject(body)
	if !ok {
		return nil, fmt.Errorf("response is not a JSON object")
	}

	resp := &Response{
		Message:     obj.str("message"),
		Action:      Action(obj.str("action")),
		Summary:     obj.str("summary"),
		Suggestions: obj.strings("suggestions"),
		Status:      Status(obj.str("status")),
	}
	if data, ok := obj.raw("data"); ok {
		resp.Data = data
	}
	if nav, ok := obj.obj("navigation"); ok {
		if page := nav.str("page"); page != "" {
			resp.Navigation = &Navigation{Page: page, Params: nav.anyMap("params")}
		}
	}
	return resp, nil
}
