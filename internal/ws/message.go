package ws

import (
	"encoding/json"
	"errors"
)

// Request actions recognized on the wire.
const (
	ActionSubscribe     = "subscribe"
	ActionUnsubscribe   = "unsubscribe"
	ActionFetchInvoice  = "fetch_invoice"
	ActionCreateInvoice = "create_invoice"
)

// errInvalidMessage is returned for any frame that does not decode into one
// of the recognized request shapes. It is surfaced to the client as an error
// response; the connection stays open.
var errInvalidMessage = errors.New("Invalid message format")

// Request is the union of all inbound message shapes, discriminated by the
// Action tag. Pointer fields distinguish "absent" from "empty" so that a
// frame missing a required field is rejected as malformed rather than
// silently treated as an empty value.
type Request struct {
	Action    string  `json:"action"`
	Type      *string `json:"type,omitempty"`
	ID        *string `json:"id,omitempty"`
	Amount    *int64  `json:"amount,omitempty"`
	Currency  *string `json:"currency,omitempty"`
	AccountID *int64  `json:"account_id,omitempty"`
}

// decodeRequest parses one frame into a Request, enforcing the fields each
// action requires.
func decodeRequest(frame []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return nil, errInvalidMessage
	}

	switch req.Action {
	case ActionSubscribe, ActionUnsubscribe:
		if req.Type == nil || req.ID == nil {
			return nil, errInvalidMessage
		}
	case ActionFetchInvoice:
		if req.ID == nil {
			return nil, errInvalidMessage
		}
	case ActionCreateInvoice:
		if req.Amount == nil || req.Currency == nil || req.AccountID == nil {
			return nil, errInvalidMessage
		}
	default:
		return nil, errInvalidMessage
	}

	return &req, nil
}

// Response is the single outbound shape for synchronous replies.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success builds a success response with a human-readable message.
func Success(message string) Response {
	return Response{Status: "success", Message: message}
}

// SuccessData builds a success response carrying a payload.
func SuccessData(data any) Response {
	return Response{Status: "success", Data: data}
}

// Error builds an error response.
func Error(message string) Response {
	return Response{Status: "error", Message: message}
}
